package stream

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"testing"

	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, r *ChunkReader) ([]byte, []int) {
	t.Helper()
	var out []byte
	var sizes []int
	for chunk, err := range r.Chunks() {
		require.NoError(t, err)
		out = append(out, chunk...)
		sizes = append(sizes, len(chunk))
	}
	return out, sizes
}

func TestOpenStreamsToEOF(t *testing.T) {
	fsys := afero.NewMemMapFs()
	data := pattern(2500)
	writeFile(t, fsys, "/f.bin", data)

	r, err := Open(fsys, "/f.bin", 700, 1000)
	require.NoError(t, err)
	defer r.Close()

	got, sizes := drain(t, r)
	assert.Equal(t, data[700:], got)
	assert.Equal(t, []int{1000, 800}, sizes)
	assert.Equal(t, int64(2500), r.Offset())

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenRangeStopsAtEnd(t *testing.T) {
	fsys := afero.NewMemMapFs()
	data := pattern(10000)
	writeFile(t, fsys, "/f.bin", data)

	r, err := OpenRange(fsys, "/f.bin", ByteRange{Start: 5000, End: 5999, Partial: true}, 300)
	require.NoError(t, err)
	defer r.Close()

	got, sizes := drain(t, r)
	assert.Equal(t, data[5000:6000], got)
	assert.Equal(t, []int{300, 300, 300, 100}, sizes)
}

func TestOpenRangeEmptyFile(t *testing.T) {
	tfs := &trackingFs{Fs: afero.NewMemMapFs()}
	writeFile(t, tfs, "/empty", nil)

	r, err := OpenRange(tfs, "/empty", FullRange(0), 0)
	require.NoError(t, err)

	got, _ := drain(t, r)
	assert.Empty(t, got)
	assert.Zero(t, tfs.reads.Load())
	require.NoError(t, r.Close())
}

func TestOpenRangeFileShrankIsIOFailure(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/f.bin", pattern(100))

	r, err := OpenRange(fsys, "/f.bin", ByteRange{Start: 50, End: 149, Partial: true}, 30)
	require.NoError(t, err)
	defer r.Close()

	var total int
	var last error
	for chunk, err := range r.Chunks() {
		if err != nil {
			last = err
			break
		}
		total += len(chunk)
	}
	assert.Equal(t, 50, total)
	assert.ErrorIs(t, last, ErrIOFailure)
	assert.ErrorIs(t, last, io.ErrUnexpectedEOF)
}

func TestOpenMissingAndDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/dir", 0o755))

	_, err := Open(fsys, "/nope", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Open(fsys, "/dir", 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseIsIdempotent(t *testing.T) {
	tfs := &trackingFs{Fs: afero.NewMemMapFs()}
	writeFile(t, tfs, "/f", pattern(10))

	r, err := Open(tfs, "/f", 0, 4)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), tfs.closed.Load())

	_, err = r.Next()
	assert.ErrorIs(t, err, fs.ErrClosed)
}

func TestChunksArePulledLazily(t *testing.T) {
	tfs := &trackingFs{Fs: afero.NewMemMapFs()}
	writeFile(t, tfs, "/f", pattern(10000))

	r, err := Open(tfs, "/f", 0, 1000)
	require.NoError(t, err)
	defer r.Close()

	assert.Zero(t, tfs.reads.Load())
	for range 3 {
		_, err := r.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), tfs.reads.Load())
}

func TestConcurrentReadersAreIsolated(t *testing.T) {
	resolver, err := fsroot.New(t.TempDir())
	require.NoError(t, err)
	fsys := resolver.Fs()

	data := pattern(1 << 18)
	writeFile(t, fsys, "/shared.bin", data)

	const readers = 16
	results := make([][]byte, readers)
	windows := make([]ByteRange, readers)

	var wg sync.WaitGroup
	for i := range readers {
		start := int64(i * 9001)
		end := int64(len(data)) - 1 - int64(i*333)
		windows[i] = ByteRange{Start: start, End: end, Partial: true}

		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := OpenRange(fsys, "/shared.bin", windows[i], 4096+i)
			if err != nil {
				return
			}
			defer r.Close()

			var buf bytes.Buffer
			for chunk, err := range r.Chunks() {
				if err != nil {
					return
				}
				buf.Write(chunk)
			}
			results[i] = buf.Bytes()
		}()
	}
	wg.Wait()

	for i, w := range windows {
		assert.Equal(t, data[w.Start:w.End+1], results[i], fmt.Sprintf("reader %d", i))
	}
}
