package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
)

// ChunkSize is how much of an upload is buffered between writes.
const ChunkSize = 1 << 20

// Uploader stores uploaded files. Data is spooled to a hidden part file
// next to the target and renamed into place only once complete, so a
// half-written upload is never visible under its final name.
type Uploader struct {
	fs       afero.Fs
	maxBytes int64
}

// New returns an uploader writing into fsys. maxBytes <= 0 means unlimited.
func New(fsys afero.Fs, maxBytes int64) *Uploader {
	return &Uploader{fs: fsys, maxBytes: maxBytes}
}

// Save writes src into dir under the sanitized filename, replacing any
// existing file of that name.
func (u *Uploader) Save(ctx context.Context, dir fsroot.SafePath, filename string, src io.Reader) (*domain.UploadResult, error) {
	info, err := u.fs.Stat(dir.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", domain.ErrNotDirectory, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}

	name := SanitizeFileName(filename)
	if name == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFileName, filename)
	}

	target, err := dir.Join(name)
	if err != nil {
		return nil, err
	}
	part, err := dir.Join("." + name + "." + ksuid.New().String() + ".part")
	if err != nil {
		return nil, err
	}

	f, err := u.fs.OpenFile(part.String(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not create part file: %w", err)
	}

	written, err := u.spool(ctx, f, src)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = u.fs.Remove(part.String())
		return nil, fmt.Errorf("writing %s: %w", target, err)
	}

	if err := u.fs.Rename(part.String(), target.String()); err != nil {
		_ = u.fs.Remove(part.String())
		return nil, fmt.Errorf("finalizing %s: %w", target, err)
	}

	return &domain.UploadResult{
		Message: fmt.Sprintf("File %s uploaded successfully", name),
		Path:    target.String(),
		Size:    written,
	}, nil
}

// spool copies src to dst one chunk at a time, enforcing the size limit
// before each write.
func (u *Uploader) spool(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if u.maxBytes > 0 && written+int64(n) > u.maxBytes {
				return written, fmt.Errorf("%w: limit is %d bytes", domain.ErrTooLarge, u.maxBytes)
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
		}

		switch {
		case readErr == nil:
			continue
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return written, nil
		default:
			return written, readErr
		}
	}
}
