package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/datallboy/gofm/internal/infra/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runningServer struct {
	url    string
	data   []byte
	cancel context.CancelFunc
	done   chan error
	client *http.Client
}

// startServer serves a directory holding one file, movie.bin, of size
// bytes, streamed at no more than rate bytes per second.
func startServer(t *testing.T, size int, rate int64, grace time.Duration) *runningServer {
	t.Helper()

	root := t.TempDir()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 253)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "movie.bin"), data, 0o644))

	cfg := &config.Config{
		Root:   root,
		Log:    config.LogConfig{Path: filepath.Join(t.TempDir(), "gofm.log"), Level: "error"},
		Stream: config.StreamConfig{ChunkSize: 16 << 10, RateLimitBytes: rate},
		Server: config.ServerConfig{ShutdownTimeout: grace, ReadHeaderTimeout: 5 * time.Second},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := &runningServer{
		url:    "http://" + ln.Addr().String() + "/api/view/movie.bin",
		data:   data,
		cancel: cancel,
		done:   make(chan error, 1),
		client: &http.Client{Transport: &http.Transport{}},
	}
	go func() { s.done <- run(ctx, cfg, ln) }()

	t.Cleanup(func() {
		cancel()
		s.client.CloseIdleConnections()
	})
	return s
}

func (s *runningServer) waitStopped(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case err := <-s.done:
		assert.NoError(t, err)
	case <-time.After(within):
		t.Fatalf("server still running after %s", within)
	}
}

func TestShutdownLetsOpenStreamsFinish(t *testing.T) {
	s := startServer(t, 512<<10, 200_000, 10*time.Second)

	resp, err := s.client.Get(s.url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	head := make([]byte, 64<<10)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)

	// The limiter holds the rest back well past this point
	s.cancel()

	rest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(s.data, append(head, rest...)))

	s.waitStopped(t, 5*time.Second)
}

func TestShutdownCancelsStreamsAfterGrace(t *testing.T) {
	s := startServer(t, 512<<10, 50_000, 300*time.Millisecond)

	resp, err := s.client.Get(s.url)
	require.NoError(t, err)
	defer resp.Body.Close()

	head := make([]byte, 16<<10)
	_, err = io.ReadFull(resp.Body, head)
	require.NoError(t, err)

	start := time.Now()
	s.cancel()

	rest, err := io.ReadAll(resp.Body)
	assert.Error(t, err)
	assert.Less(t, len(head)+len(rest), len(s.data))
	assert.Less(t, time.Since(start), 5*time.Second)

	s.waitStopped(t, 5*time.Second)
}
