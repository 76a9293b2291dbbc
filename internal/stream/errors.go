package stream

import (
	"errors"
	"fmt"

	"github.com/datallboy/gofm/internal/domain"
)

var (
	// ErrRangeUnsatisfiable indicates a well-formed range outside the file
	ErrRangeUnsatisfiable = errors.New("range not satisfiable")

	// ErrRangeMalformed indicates an unparseable Range header under the strict policy
	ErrRangeMalformed = errors.New("malformed range header")

	// ErrNotFound indicates the target is missing or not a regular file at open time
	ErrNotFound = domain.ErrNotFound

	// ErrTransportAborted indicates the client went away mid-stream
	ErrTransportAborted = errors.New("transport aborted")

	// ErrIOFailure indicates an unexpected error reading the file
	ErrIOFailure = errors.New("i/o failure")
)

// RangeError carries the file size alongside a rejected Range header so
// the transport can answer with "Content-Range: bytes */size".
type RangeError struct {
	Header string
	Size   int64
	err    error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: %q (size %d)", e.err, e.Header, e.Size)
}

func (e *RangeError) Unwrap() error { return e.err }
