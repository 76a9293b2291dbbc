// Package mimetype resolves content types from file names.
//
// Lookup order is the system mime database, then a built-in table of
// common text, media and document types, then application/octet-stream.
// A Table is immutable after construction and safe for concurrent use.
package mimetype

import (
	"mime"
	"path"
	"strings"
)

// Default is returned when nothing else matches.
const Default = "application/octet-stream"

var fallback = map[string]string{
	".txt":       "text/plain",
	".log":       "text/plain",
	".conf":      "text/plain",
	".md":        "text/markdown",
	".sh":        "text/x-shellscript",
	".bashrc":    "text/plain",
	".profile":   "text/plain",
	".pdf":       "application/pdf",
	".json":      "application/json",
	".xml":       "application/xml",
	".html":      "text/html",
	".css":       "text/css",
	".js":        "application/javascript",
	".mp4":       "video/mp4",
	".m4v":       "video/mp4",
	".mkv":       "video/x-matroska",
	".avi":       "video/x-msvideo",
	".mov":       "video/quicktime",
	".webm":      "video/webm",
	".mp3":       "audio/mpeg",
	".m4a":       "audio/mp4",
	".wav":       "audio/wav",
	".ogg":       "audio/ogg",
	".flac":      "audio/flac",
	".jpg":       "image/jpeg",
	".jpeg":      "image/jpeg",
	".png":       "image/png",
	".gif":       "image/gif",
	".webp":      "image/webp",
	".svg":       "image/svg+xml",
	".zip":       "application/zip",
	".gz":        "application/gzip",
	".tar":       "application/x-tar",
	".csv":       "text/csv",
	".yaml":      "application/yaml",
	".yml":       "application/yaml",
	".toml":      "application/toml",
	".srt":       "application/x-subrip",
	".vtt":       "text/vtt",
	".epub":      "application/epub+zip",
	".docx":      "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx":      "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".gitignore": "text/plain",
}

// Table maps file names to content types.
type Table struct {
	lookupSystem bool
	entries      map[string]string
}

// NewTable builds a table from the built-in fallbacks overlaid with extra.
// Keys of extra are extensions with or without the leading dot.
func NewTable(extra map[string]string) *Table {
	entries := make(map[string]string, len(fallback)+len(extra))
	for k, v := range fallback {
		entries[k] = v
	}
	for k, v := range extra {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || v == "" {
			continue
		}
		if !strings.HasPrefix(k, ".") {
			k = "." + k
		}
		entries[k] = v
	}

	return &Table{lookupSystem: true, entries: entries}
}

// Resolve returns the content type for name, never "".
func (t *Table) Resolve(name string) string {
	key := lookupKey(name)
	if key == "" {
		return Default
	}

	if t.lookupSystem {
		if ct := mime.TypeByExtension(key); ct != "" {
			return ct
		}
	}
	if ct, ok := t.entries[key]; ok {
		return ct
	}
	return Default
}

// lookupKey is the lowercase extension, or the whole name for dotfiles
// such as ".bashrc" which have no extension of their own.
func lookupKey(name string) string {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	ext := path.Ext(base)
	if ext == base || ext == "" {
		if strings.HasPrefix(base, ".") && len(base) > 1 {
			return base
		}
		return ""
	}
	return ext
}
