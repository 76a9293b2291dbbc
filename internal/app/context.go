package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/datallboy/gofm/internal/infra/config"
	"github.com/datallboy/gofm/internal/infra/logger"
	"github.com/datallboy/gofm/internal/listing"
	"github.com/datallboy/gofm/internal/mimetype"
	"github.com/datallboy/gofm/internal/stream"
	"github.com/datallboy/gofm/internal/upload"
)

type PathResolver interface {
	// Every path handed to the services below comes from here
	Resolve(raw string) (fsroot.SafePath, error)
}

type FileLister interface {
	List(ctx context.Context, dir fsroot.SafePath) (*domain.DirectoryListing, error)
	Stat(p fsroot.SafePath) (domain.FileInfo, error)
}

type Streamer interface {
	Prepare(ctx context.Context, p fsroot.SafePath, rangeHeader string) (*stream.Response, error)
	Serve(ctx context.Context, w http.ResponseWriter, resp *stream.Response, headOnly bool) error
}

type Uploader interface {
	Save(ctx context.Context, dir fsroot.SafePath, filename string, src io.Reader) (*domain.UploadResult, error)
}

// Context hold the core environment and shared resources for gofm.
// It acts as the "Single Source of Truth" for the application state.
type Context struct {
	Config *config.Config
	Logger *logger.Logger

	// High-level interfaces for controllers to use
	Paths   PathResolver
	Files   FileLister
	Streams Streamer
	Uploads Uploader
}

// NewContext initializes the base environment.
func NewContext(cfg *config.Config, log *logger.Logger) *Context {
	return &Context{
		Config: cfg,
		Logger: log,
	}
}

// Build wires the services for serving cfg.Root from the local disk.
func Build(cfg *config.Config, log *logger.Logger) (*Context, error) {
	resolver, err := fsroot.New(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}
	return Wire(cfg, log, resolver), nil
}

// Wire builds the services on top of an existing resolver.
func Wire(cfg *config.Config, log *logger.Logger, resolver *fsroot.Resolver) *Context {
	ctx := NewContext(cfg, log)

	mimes := mimetype.NewTable(cfg.MimeExtras())
	lister := listing.New(resolver.Fs(), mimes, resolver)

	policy := stream.RangeLenient
	if cfg.Stream.StrictRanges {
		policy = stream.RangeStrict
	}

	ctx.Paths = resolver
	ctx.Files = lister
	ctx.Streams = stream.NewEngine(resolver.Fs(), lister, stream.Options{
		ChunkSize: cfg.Stream.ChunkSize,
		Policy:    policy,
		RateLimit: cfg.Stream.RateLimitBytes,
		Logger:    log,
	})
	ctx.Uploads = upload.New(resolver.Fs(), cfg.Upload.MaxBytes)

	return ctx
}
