package core

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Path represents an on-disk path below one filesystem root. Inputs and outputs of
// build steps are Paths; the root identifies which project filesystem they belong to.
type Path interface {
	Root() string
	Relative() string
	Absolute() string
	String() string
	Dir() Path
	Base() string
	WithExt(ext string) Path
	WithSuffix(suffix string) Path
}

// Paths represents a list of Paths.
type Paths []Path

func (ps Paths) String() string {
	paths := []string{}
	for _, p := range ps {
		paths = append(paths, fmt.Sprintf("%q", p.Absolute()))
	}
	return strings.Join(paths, " ")
}

// rootedPath is a slash separated path relative to a filesystem root.
type rootedPath struct {
	root string
	rel  string
}

// NewPath creates a Path for rel below root. A rel path that tries to escape the
// root is clamped to it.
func NewPath(root, rel string) Path {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimPrefix(path.Clean("/"+rel), "/")
	return rootedPath{root: filepath.Clean(root), rel: rel}
}

// Root returns the filesystem root the path lives under.
func (p rootedPath) Root() string {
	return p.root
}

// Relative returns the path relative to its root.
func (p rootedPath) Relative() string {
	if p.rel == "" {
		return "."
	}
	return p.rel
}

// Absolute returns the absolute path.
func (p rootedPath) Absolute() string {
	return filepath.Join(p.root, filepath.FromSlash(p.rel))
}

// Dir returns the directory containing the path.
func (p rootedPath) Dir() Path {
	dir := path.Dir(p.rel)
	if dir == "." {
		dir = ""
	}
	return rootedPath{root: p.root, rel: dir}
}

// Base returns the last element of the path.
func (p rootedPath) Base() string {
	return path.Base(p.rel)
}

// WithExt creates a Path with the same relative path and the given extension.
func (p rootedPath) WithExt(ext string) Path {
	oldExt := path.Ext(p.rel)
	return rootedPath{root: p.root, rel: fmt.Sprintf("%s.%s", strings.TrimSuffix(p.rel, oldExt), ext)}
}

// WithSuffix creates a Path with the same relative path and the given suffix.
func (p rootedPath) WithSuffix(suffix string) Path {
	return rootedPath{root: p.root, rel: p.rel + suffix}
}

// String representation of a Path is its absolute path.
func (p rootedPath) String() string {
	return p.Absolute()
}

// ResolvePath turns a path written relative to root, or absolute, into a Path.
// Absolute paths inside root live below root, other absolute paths below the
// filesystem root. A relative path that leaves root is an error.
func ResolvePath(root, p string) (Path, error) {
	root = filepath.Clean(root)
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, filepath.Clean(p))
		if err != nil || escapes(rel) {
			return NewPath(string(filepath.Separator), p), nil
		}
		return NewPath(root, rel), nil
	}
	if escapes(filepath.Clean(p)) {
		return nil, fmt.Errorf("%s leaves its root %s", p, root)
	}
	return NewPath(root, p), nil
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// RelativeTo returns p as a path relative to dir. Both must share a root.
func RelativeTo(p, dir Path) (string, error) {
	if !SameRoot(p, dir) {
		return "", fmt.Errorf("%s and %s are not under the same root", p, dir)
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir.Relative()), filepath.FromSlash(p.Relative()))
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// SameRoot reports whether a and b live under the same filesystem root. Roots are
// equal if their cleaned paths match, or if both exist and name the same directory.
// Only directory metadata is read, never file contents.
func SameRoot(a, b Path) bool {
	ra, rb := filepath.Clean(a.Root()), filepath.Clean(b.Root())
	if ra == rb {
		return true
	}
	sa, err := os.Stat(ra)
	if err != nil {
		return false
	}
	sb, err := os.Stat(rb)
	if err != nil {
		return false
	}
	return os.SameFile(sa, sb)
}
