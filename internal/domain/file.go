package domain

import (
	"io/fs"
	"time"
)

// FileInfo is the metadata the listing and streaming layers agree on.
type FileInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IsDir     bool      `json:"is_dir"`
	Size      string    `json:"size"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  *string   `json:"mime_type"`
	ModTime   time.Time `json:"mod_time"`

	Mode fs.FileMode `json:"-"`
}

// Mime returns the resolved mime type, or "" for directories.
func (f FileInfo) Mime() string {
	if f.MimeType == nil {
		return ""
	}
	return *f.MimeType
}

// IsRegular reports whether the entry is a plain file that can be read
// from start to end without blocking on another process.
func (f FileInfo) IsRegular() bool { return f.Mode.IsRegular() }

// Breadcrumb is one navigable segment of a path, root first.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// DirectoryListing is the result of listing one directory.
type DirectoryListing struct {
	CurrentPath string       `json:"current_path"`
	Files       []FileInfo   `json:"files"`
	ParentPath  *string      `json:"parent_path"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
}

// UploadResult describes a file stored by an upload.
type UploadResult struct {
	Message string `json:"message"`
	Path    string `json:"path"`
	Size    int64  `json:"size"`
}
