package fsroot

import (
	"fmt"
	"path"
	"strings"

	"github.com/datallboy/gofm/internal/domain"
)

// SafePath is a slash-separated absolute path inside the served root.
// The only ways to obtain one are Resolver.Resolve and SafePath.Join, so
// holders never need to re-check containment.
type SafePath struct {
	p string
}

// RootPath is the served root itself.
var RootPath = SafePath{p: "/"}

func (s SafePath) String() string {
	if s.p == "" {
		return "/"
	}
	return s.p
}

func (s SafePath) IsRoot() bool { return s.String() == "/" }

// Name is the last element, or "/" for the root.
func (s SafePath) Name() string { return path.Base(s.String()) }

// Ext is the lowercase extension of Name including the dot.
func (s SafePath) Ext() string { return strings.ToLower(path.Ext(s.Name())) }

// Parent returns the containing directory. The root has no parent.
func (s SafePath) Parent() (SafePath, bool) {
	if s.IsRoot() {
		return SafePath{}, false
	}
	return SafePath{p: path.Dir(s.String())}, true
}

// Join appends a single path element. Separators and dot elements are rejected.
func (s SafePath) Join(name string) (SafePath, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return SafePath{}, fmt.Errorf("%w: %q is not a single path element", domain.ErrInvalidPath, name)
	}
	return SafePath{p: path.Join(s.String(), name)}, nil
}

// Breadcrumbs lists the root followed by every ancestor down to s.
func (s SafePath) Breadcrumbs() []domain.Breadcrumb {
	crumbs := []domain.Breadcrumb{{Name: "Root", Path: "/"}}
	if s.IsRoot() {
		return crumbs
	}

	current := "/"
	for _, part := range strings.Split(strings.TrimPrefix(s.String(), "/"), "/") {
		current = path.Join(current, part)
		crumbs = append(crumbs, domain.Breadcrumb{Name: part, Path: current})
	}
	return crumbs
}
