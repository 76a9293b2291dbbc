package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/datallboy/gofm/internal/api"
	"github.com/datallboy/gofm/internal/app"
	"github.com/datallboy/gofm/internal/infra/config"
	"github.com/datallboy/gofm/internal/infra/logger"
	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringP("port", "p", "", "port to listen on")
	f.StringP("root", "r", "", "directory to serve")
	f.String("log-level", "", "debug, info, warn or error")
	f.Int("chunk-size", 0, "bytes read per chunk when streaming")
	f.Bool("strict", false, "answer malformed Range headers with 416")
	f.Int64("rate-limit", 0, "per stream bandwidth cap in bytes per second")
	f.Int64("max-upload", 0, "largest accepted upload in bytes")

	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}
	return run(parent, cfg, ln)
}

// run serves on ln until parent is cancelled or a signal arrives. In-flight
// requests then get server.shutdown_timeout to finish before their
// contexts are cancelled.
func run(parent context.Context, cfg *config.Config, ln net.Listener) error {
	// Initialize Logger
	appLog, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		ln.Close()
		return fmt.Errorf("logger error: %w", err)
	}
	defer appLog.Close()

	appCtx, err := app.Build(cfg, appLog)
	if err != nil {
		ln.Close()
		return err
	}

	reloading := cfg.Watch(func(next *config.Config) {
		appLog.SetLevel(logger.ParseLevel(next.Log.Level))
		appLog.Info("Config reloaded, log level %s", appLog.Level())
	}, func(err error) {
		appLog.Warn("%v", err)
	})

	e := echo.New()
	api.RegisterRoutes(e, appCtx)

	// Setup Signal Handling for Graceful Shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Request contexts outlive the signal until the grace period is over
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Handler:           e,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ErrorLog:          log.New(appLog, "", 0),
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLog.Info("Serving %s on %s (chunk %s, strict ranges %t, config reload %t)",
			cfg.Root, ln.Addr(), humanize.IBytes(uint64(cfg.Stream.ChunkSize)), cfg.Stream.StrictRanges, reloading)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("Shutting down, waiting up to %s for open requests", cfg.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if errors.Is(err, context.DeadlineExceeded) {
			appLog.Warn("Grace period over, cancelling open requests")
			cancelBase()
			return srv.Close()
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	appLog.Info("Server stopped")
	return nil
}
