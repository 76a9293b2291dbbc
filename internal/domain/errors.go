package domain

import "errors"

// ErrNotFound indicates the path does not exist under the served root
var ErrNotFound = errors.New("path not found")

// ErrNotDirectory indicates a directory operation was given a file
var ErrNotDirectory = errors.New("not a directory")

// ErrInvalidPath indicates a request path that cannot be confined to the root
var ErrInvalidPath = errors.New("invalid path")

// ErrInvalidFileName indicates an uploaded file name that sanitizes to nothing
var ErrInvalidFileName = errors.New("invalid file name")

// ErrTooLarge indicates an upload over the configured size limit
var ErrTooLarge = errors.New("upload too large")
