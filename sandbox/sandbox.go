package sandbox

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sweetpotato0/pinecone/errors"
)

// Sandbox confines file system access to a single root directory.
// Every path is canonicalized (absolute, cleaned, symlinks resolved)
// before the containment check, so "..", absolute paths and symlinks
// pointing outside the root are all rejected the same way.
type Sandbox struct {
	root string
}

// New creates a sandbox rooted at dir. The root must exist and be a directory.
func New(dir string) (*Sandbox, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("sandbox: %w: empty root", errors.ErrInvalidInput)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox: resolve root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("sandbox: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox: %w: root %s is not a directory", errors.ErrInvalidInput, canonical)
	}
	return &Sandbox{root: canonical}, nil
}

// Root returns the canonical confinement root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve turns a root-relative or absolute path into its canonical form
// and verifies that it stays inside the root. Paths that do not exist yet
// are resolved through their deepest existing ancestor.
func (s *Sandbox) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", errors.ErrInvalidInput)
	}

	target := path
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.root, target)
	}
	target = filepath.Clean(target)

	canonical, err := canonicalize(target)
	if err != nil {
		return "", err
	}
	if !s.contains(canonical) {
		return "", fmt.Errorf("%w: %s", errors.ErrPathEscape, path)
	}
	return canonical, nil
}

// ResolveDir is Resolve for paths that must be existing directories.
func (s *Sandbox) ResolveDir(path string) (string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s does not exist", errors.ErrNotFound, path)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", errors.ErrInvalidInput, path)
	}
	return resolved, nil
}

// Rel returns path relative to the root, for display.
func (s *Sandbox) Rel(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return path
	}
	return rel
}

func (s *Sandbox) contains(path string) bool {
	if path == s.root {
		return true
	}
	prefix := s.root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// canonicalize resolves symlinks for the longest existing prefix of path
// and re-attaches the missing tail.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	base, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(path)), nil
}
