package fsroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/datallboy/gofm/internal/domain"
	"github.com/spf13/afero"
)

// Resolver turns untrusted request paths into SafePaths and owns the
// filesystem view they are valid against.
type Resolver struct {
	fs      afero.Fs
	osRoot  string // empty when not backed by the OS filesystem
	display string
}

// New confines the resolver to root on the local filesystem.
func New(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	// Symlink checks compare against the resolved location of the root
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("root %s is not accessible: %w", abs, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("root %s is not accessible: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s: %w", resolved, domain.ErrNotDirectory)
	}

	return &Resolver{
		fs:      afero.NewBasePathFs(afero.NewOsFs(), resolved),
		osRoot:  resolved,
		display: abs,
	}, nil
}

// NewWithFs wraps an arbitrary afero filesystem. Symlink confinement is
// skipped since the filesystem has no host paths.
func NewWithFs(fsys afero.Fs) *Resolver {
	return &Resolver{fs: fsys, display: "/"}
}

// Fs is the filesystem every SafePath from this resolver is relative to.
func (r *Resolver) Fs() afero.Fs { return r.fs }

// Root is the configured root as given by the operator.
func (r *Resolver) Root() string { return r.display }

// Resolve cleans a URL-decoded request path into a SafePath. Dot-dot
// elements cannot climb above the root because the path is cleaned as
// rooted; symlinks that lead outside the root are rejected.
func (r *Resolver) Resolve(raw string) (SafePath, error) {
	if strings.ContainsRune(raw, 0) {
		return SafePath{}, fmt.Errorf("%w: contains NUL byte", domain.ErrInvalidPath)
	}

	raw = strings.ReplaceAll(raw, "\\", "/")
	clean := path.Clean("/" + raw)
	sp := SafePath{p: clean}

	if r.osRoot == "" || sp.IsRoot() {
		return sp, nil
	}

	if err := r.Confine(sp); err != nil {
		return SafePath{}, err
	}
	return sp, nil
}

// Confine fails with domain.ErrInvalidPath when following the links in
// sp ends up outside the root. Filesystems without a host root have no
// links to follow and always pass.
func (r *Resolver) Confine(sp SafePath) error {
	if r.osRoot == "" || sp.IsRoot() {
		return nil
	}

	host := filepath.Join(r.osRoot, filepath.FromSlash(sp.String()))

	resolved, err := filepath.EvalSymlinks(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Missing paths are reported by whoever touches them next
			return nil
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidPath, err)
	}

	rel, err := filepath.Rel(r.osRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s escapes the served root", domain.ErrInvalidPath, sp)
	}
	return nil
}
