package stream

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"

	"github.com/spf13/afero"
)

// DefaultChunkSize is the largest chunk a ChunkReader hands out.
const DefaultChunkSize = 1 << 20

// ChunkReader yields a file as a lazy sequence of chunks starting at an
// offset. Every pull performs exactly one read; nothing is read ahead.
// A ChunkReader is single-use and must not be shared between goroutines.
type ChunkReader struct {
	file      afero.File
	buf       []byte
	offset    int64
	remaining int64 // -1 when bounded only by end of file
	err       error // sticky terminal error, io.EOF included
	closed    bool
}

// Open streams name from offset to end of file.
func Open(fsys afero.Fs, name string, offset int64, chunkSize int) (*ChunkReader, error) {
	return open(fsys, name, offset, -1, chunkSize)
}

// OpenRange streams exactly r.Length() bytes starting at r.Start and
// stops there even when the file continues.
func OpenRange(fsys afero.Fs, name string, r ByteRange, chunkSize int) (*ChunkReader, error) {
	return open(fsys, name, r.Start, r.Length(), chunkSize)
}

func open(fsys afero.Fs, name string, offset, limit int64, chunkSize int) (*ChunkReader, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", ErrRangeUnsatisfiable, offset)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: opening %s: %w", ErrIOFailure, name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, name)
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: seeking %s to %d: %w", ErrIOFailure, name, offset, err)
		}
	}

	// No point holding a buffer larger than the whole window
	if limit >= 0 && limit < int64(chunkSize) {
		chunkSize = int(max(limit, 1))
	}

	return &ChunkReader{
		file:      f,
		buf:       make([]byte, chunkSize),
		offset:    offset,
		remaining: limit,
	}, nil
}

// Offset is the file position of the next chunk.
func (r *ChunkReader) Offset() int64 { return r.offset }

// Next returns the next chunk, or io.EOF once the window or file is
// exhausted. The chunk aliases an internal buffer and is only valid
// until the following call.
func (r *ChunkReader) Next() ([]byte, error) {
	if r.closed {
		return nil, fs.ErrClosed
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.remaining == 0 {
		r.err = io.EOF
		return nil, r.err
	}

	want := len(r.buf)
	if r.remaining > 0 && r.remaining < int64(want) {
		want = int(r.remaining)
	}

	n, err := r.file.Read(r.buf[:want])
	if n > 0 {
		r.offset += int64(n)
		if r.remaining > 0 {
			r.remaining -= int64(n)
		}
		if err != nil {
			// Deliver the data now, report the condition on the next pull
			r.err = r.classify(err)
		}
		return r.buf[:n], nil
	}

	r.err = r.classify(err)
	return nil, r.err
}

// Chunks adapts Next to a range-over-func sequence. Iteration ends
// silently at end of stream and yields any other error once.
func (r *ChunkReader) Chunks() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			chunk, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(chunk, err) || err != nil {
				return
			}
		}
	}
}

// Close releases the file handle. It is safe to call more than once.
func (r *ChunkReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// classify maps the error of a read that returned no data. A zero-byte
// read ends the stream; inside a bounded window that means the file
// shrank underneath us.
func (r *ChunkReader) classify(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		if r.remaining > 0 {
			return fmt.Errorf("%w: %d bytes short at offset %d: %w", ErrIOFailure, r.remaining, r.offset, io.ErrUnexpectedEOF)
		}
		return io.EOF
	}
	return fmt.Errorf("%w: reading at offset %d: %w", ErrIOFailure, r.offset, err)
}
