package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/datallboy/gofm/internal/mimetype"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

// MetadataProvider reports size, type and kind of a path before the
// engine commits to streaming it.
type MetadataProvider interface {
	Stat(p fsroot.SafePath) (domain.FileInfo, error)
}

// Logger is the subset of the application logger the engine writes to.
type Logger interface {
	Debug(f string, v ...any)
	Info(f string, v ...any)
	Warn(f string, v ...any)
	Error(f string, v ...any)
}

type Options struct {
	ChunkSize int
	Policy    RangePolicy

	// RateLimit caps each stream at this many bytes per second; 0 disables it
	RateLimit int64

	Logger Logger
}

// Engine serves byte windows of files under one filesystem.
type Engine struct {
	fs   afero.Fs
	meta MetadataProvider
	opts Options
	log  Logger
}

func NewEngine(fsys afero.Fs, meta MetadataProvider, opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}

	return &Engine{fs: fsys, meta: meta, opts: opts, log: log}
}

// Prepare validates the request and opens the body. Nothing has been
// written when it returns, so every error here can still become a
// proper HTTP error response.
func (e *Engine) Prepare(ctx context.Context, p fsroot.SafePath, rangeHeader string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransportAborted, err)
	}

	info, err := e.meta.Stat(p)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, p, err)
	}
	if info.IsDir {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, p)
	}
	// Opening a FIFO or device can block until some other process shows up
	if !info.IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, p)
	}

	br, err := ParseRange(rangeHeader, info.SizeBytes, e.opts.Policy)
	if err != nil {
		return nil, err
	}

	mimeType := info.Mime()
	if mimeType == "" {
		mimeType = mimetype.Default
	}

	return Build(e.fs, Descriptor{
		Path:     p,
		Size:     info.SizeBytes,
		MimeType: mimeType,
		Range:    br,
	}, e.opts.ChunkSize)
}

// Serve writes resp to w and always closes its body. Once the status
// line is out errors can only end the stream: a client that went away
// yields ErrTransportAborted, a failing read yields ErrIOFailure.
func (e *Engine) Serve(ctx context.Context, w http.ResponseWriter, resp *Response, headOnly bool) error {
	id := ksuid.New().String()
	d := resp.Descriptor

	defer func() {
		if err := resp.Close(); err != nil {
			e.log.Warn("stream %s: closing %s: %v", id, d.Path, err)
		}
	}()

	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.Status)

	if headOnly {
		return nil
	}

	e.log.Debug("stream %s: %s bytes %d-%d/%d", id, d.Path, d.Range.Start, d.Range.End, d.Size)

	var limiter *rate.Limiter
	if e.opts.RateLimit > 0 {
		burst := max(int(e.opts.RateLimit), e.opts.ChunkSize)
		limiter = rate.NewLimiter(rate.Limit(e.opts.RateLimit), burst)
	}

	rc := http.NewResponseController(w)
	var sent int64

	for chunk, err := range resp.Body.Chunks() {
		if err != nil {
			e.log.Error("stream %s: %s failed after %d of %d bytes: %v", id, d.Path, sent, d.Range.Length(), err)
			return err
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.aborted(id, d, sent, ctxErr)
		}

		if limiter != nil {
			if err := limiter.WaitN(ctx, len(chunk)); err != nil {
				return e.aborted(id, d, sent, err)
			}
		}

		if _, err := w.Write(chunk); err != nil {
			return e.aborted(id, d, sent, err)
		}
		sent += int64(len(chunk))

		// Not every writer can flush; the bytes still go out eventually
		_ = rc.Flush()
	}

	e.log.Debug("stream %s: %s completed, %d bytes", id, d.Path, sent)
	return nil
}

func (e *Engine) aborted(id string, d Descriptor, sent int64, cause error) error {
	e.log.Debug("stream %s: %s aborted after %d of %d bytes: %v", id, d.Path, sent, d.Range.Length(), cause)
	return fmt.Errorf("%w: %w", ErrTransportAborted, cause)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
