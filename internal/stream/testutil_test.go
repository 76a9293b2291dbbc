package stream

import (
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// pattern returns size bytes where no short window repeats at a nearby offset.
func pattern(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*7 + i/251) % 256)
	}
	return data
}

func writeFile(t *testing.T, fsys afero.Fs, name string, data []byte) fsroot.SafePath {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, name, data, 0o644))
	p, err := fsroot.NewWithFs(fsys).Resolve(name)
	require.NoError(t, err)
	return p
}

// statMeta answers Stat straight from the filesystem.
type statMeta struct {
	fs   afero.Fs
	mime string
}

func (m statMeta) Stat(p fsroot.SafePath) (domain.FileInfo, error) {
	info, err := m.fs.Stat(p.String())
	if err != nil {
		return domain.FileInfo{}, domain.ErrNotFound
	}
	fi := domain.FileInfo{Name: info.Name(), Path: p.String(), IsDir: info.IsDir(), SizeBytes: info.Size(), Mode: info.Mode()}
	if !info.IsDir() && m.mime != "" {
		mt := m.mime
		fi.MimeType = &mt
	}
	return fi, nil
}

// trackingFs counts opens, reads and closes of the files it hands out.
// With failOnRead set, that read (1-based, across all files) fails.
type trackingFs struct {
	afero.Fs
	opened     atomic.Int32
	reads      atomic.Int32
	closed     atomic.Int32
	failOnRead int32
}

func (t *trackingFs) Open(name string) (afero.File, error) {
	f, err := t.Fs.Open(name)
	if err != nil {
		return nil, err
	}
	t.opened.Add(1)
	return &trackingFile{File: f, owner: t}, nil
}

type trackingFile struct {
	afero.File
	owner *trackingFs
}

func (f *trackingFile) Read(p []byte) (int, error) {
	n := f.owner.reads.Add(1)
	if f.owner.failOnRead > 0 && n == f.owner.failOnRead {
		return 0, errDiskGone
	}
	return f.File.Read(p)
}

func (f *trackingFile) Close() error {
	f.owner.closed.Add(1)
	return f.File.Close()
}

// hangupWriter accepts a fixed number of writes and then fails like a
// socket whose peer has gone away.
type hangupWriter struct {
	header    http.Header
	status    int
	allowed   int
	writes    int
	collected []byte
}

func newHangupWriter(allowed int) *hangupWriter {
	return &hangupWriter{header: make(http.Header), allowed: allowed}
}

func (w *hangupWriter) Header() http.Header { return w.header }

func (w *hangupWriter) WriteHeader(status int) { w.status = status }

func (w *hangupWriter) Write(p []byte) (int, error) {
	if w.writes >= w.allowed {
		return 0, errBrokenPipe
	}
	w.writes++
	w.collected = append(w.collected, p...)
	return len(p), nil
}

type brokenPipe struct{}

func (brokenPipe) Error() string { return "write: broken pipe" }

var errBrokenPipe error = brokenPipe{}

var errDiskGone = errors.New("disk gone")

// fixedMeta reports the same metadata for every path.
type fixedMeta struct {
	info domain.FileInfo
}

func (m fixedMeta) Stat(fsroot.SafePath) (domain.FileInfo, error) { return m.info, nil }
