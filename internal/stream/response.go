package stream

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/spf13/afero"
)

// Descriptor is everything needed to answer one streaming request.
type Descriptor struct {
	Path     fsroot.SafePath
	Size     int64
	MimeType string
	Range    ByteRange
}

// Response is a built but not yet written stream: status and headers
// are final, the body has not been read.
type Response struct {
	Status     int
	Header     http.Header
	Body       *ChunkReader
	Descriptor Descriptor
}

// Headers computes the status and headers for d without touching the
// filesystem. Content-Length is always the size of the selected window.
func Headers(d Descriptor) (int, http.Header) {
	h := make(http.Header, 4)
	h.Set("Content-Type", d.MimeType)
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Length", strconv.FormatInt(d.Range.Length(), 10))

	if !d.Range.Partial {
		return http.StatusOK, h
	}
	h.Set("Content-Range", d.Range.ContentRange(d.Size))
	return http.StatusPartialContent, h
}

// Build opens the body for d and pairs it with its headers.
func Build(fsys afero.Fs, d Descriptor, chunkSize int) (*Response, error) {
	status, header := Headers(d)

	body, err := OpenRange(fsys, d.Path.String(), d.Range, chunkSize)
	if err != nil {
		return nil, fmt.Errorf("building response for %s: %w", d.Path, err)
	}

	return &Response{
		Status:     status,
		Header:     header,
		Body:       body,
		Descriptor: d,
	}, nil
}

// Close releases the body without streaming it.
func (r *Response) Close() error {
	if r.Body == nil {
		return nil
	}
	return r.Body.Close()
}
