package listing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/datallboy/gofm/internal/fsroot"
	"github.com/datallboy/gofm/internal/mimetype"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// LinkGuard decides whether a symlinked entry may be followed.
type LinkGuard interface {
	Confine(p fsroot.SafePath) error
}

// Lister answers metadata and directory listing questions for the
// filesystem a resolver hands out paths for.
type Lister struct {
	fs    afero.Fs
	mimes *mimetype.Table
	links LinkGuard
}

// New builds a Lister. links may be nil when fsys cannot hold symlinks.
func New(fsys afero.Fs, mimes *mimetype.Table, links LinkGuard) *Lister {
	return &Lister{fs: fsys, mimes: mimes, links: links}
}

// Stat describes a single path. Missing paths yield domain.ErrNotFound.
func (l *Lister) Stat(p fsroot.SafePath) (domain.FileInfo, error) {
	info, err := l.fs.Stat(p.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.FileInfo{}, fmt.Errorf("%w: %s", domain.ErrNotFound, p)
		}
		return domain.FileInfo{}, fmt.Errorf("stat %s: %w", p, err)
	}

	fi := l.describe(p, info)
	fi.Name = p.Name()
	return fi, nil
}

// List returns the entries of dir, directories first, then by
// case-insensitive name.
func (l *Lister) List(ctx context.Context, dir fsroot.SafePath) (*domain.DirectoryListing, error) {
	info, err := l.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotDirectory, dir)
	}

	entries, err := afero.ReadDir(l.fs, dir.String())
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	files := make([]domain.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		child, err := dir.Join(entry.Name())
		if err != nil {
			continue
		}

		// Entries come from lstat; follow links so linked directories stay
		// navigable, unless the target lives outside the root
		if entry.Mode()&os.ModeSymlink != 0 && l.followable(child) {
			if target, err := l.fs.Stat(child.String()); err == nil {
				entry = namedInfo{FileInfo: target, name: entry.Name()}
			}
		}

		files = append(files, l.describe(child, entry))
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].IsDir != files[j].IsDir {
			return files[i].IsDir
		}
		return strings.ToLower(files[i].Name) < strings.ToLower(files[j].Name)
	})

	listing := &domain.DirectoryListing{
		CurrentPath: dir.String(),
		Files:       files,
		Breadcrumbs: dir.Breadcrumbs(),
	}
	if parent, ok := dir.Parent(); ok {
		pp := parent.String()
		listing.ParentPath = &pp
	}

	return listing, nil
}

func (l *Lister) followable(p fsroot.SafePath) bool {
	return l.links == nil || l.links.Confine(p) == nil
}

func (l *Lister) describe(p fsroot.SafePath, info os.FileInfo) domain.FileInfo {
	fi := domain.FileInfo{
		Name:    info.Name(),
		Path:    p.String(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}

	if !fi.IsDir {
		fi.SizeBytes = info.Size()
		mt := l.mimes.Resolve(info.Name())
		fi.MimeType = &mt
	}
	fi.Size = humanize.Bytes(uint64(fi.SizeBytes))

	return fi
}

// namedInfo keeps the link's own name while reporting the target's metadata.
type namedInfo struct {
	os.FileInfo
	name string
}

func (n namedInfo) Name() string { return n.name }
