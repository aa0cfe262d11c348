package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Hierarchy manages the year/merchant/month directory tree under a single
// storage root. It is the only component that turns document metadata into
// on-disk locations; callers persist paths relative to the root.
type Hierarchy struct {
	root string
}

const (
	fallbackMerchant = "merchant"
	fallbackMonth    = "month"
)

// NewHierarchy resolves root to an absolute path and creates it if absent.
func NewHierarchy(root string) (*Hierarchy, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Hierarchy{root: abs}, nil
}

// Root returns the absolute storage root directory.
func (h *Hierarchy) Root() string {
	return h.root
}

// Dir computes the absolute directory for the given year/merchant/month
// without creating it.
func (h *Hierarchy) Dir(year int, merchant, month string) (string, error) {
	ys, err := YearSegment(strconv.Itoa(year))
	if err != nil {
		return "", err
	}
	ms := DirSegment(merchant, fallbackMerchant)
	mo := DirSegment(month, fallbackMonth)
	return filepath.Join(h.root, ys, ms, mo), nil
}

// Place moves the file at path into the year/merchant/month directory,
// creating it if needed. The basename is kept as-is; only the directory
// changes. Moving a file onto itself is a no-op; moving onto a different
// existing file fails. Returns the new absolute path.
func (h *Hierarchy) Place(path string, year int, merchant, month string) (string, error) {
	dir, err := h.Dir(year, merchant, month)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrPlacementFailed, dir, err)
	}

	src, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", ErrPlacementFailed, path, err)
	}
	dest := filepath.Join(dir, filepath.Base(src))
	if src == dest {
		return dest, nil
	}
	// os.Rename silently replaces an existing destination; never overwrite
	// another document's backing file.
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("%w: destination %s already exists", ErrPlacementFailed, filepath.Base(dest))
	}
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("%w: move %s: %v", ErrPlacementFailed, filepath.Base(src), err)
	}
	return dest, nil
}

// Rel converts an absolute path inside the hierarchy to the slash-separated
// form stored in document records.
func (h *Hierarchy) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(h.root, abs)
	if err != nil || !withinRoot(rel) {
		return "", fmt.Errorf("path %s is outside the storage root", abs)
	}
	return filepath.ToSlash(rel), nil
}

// Abs resolves a stored relative path against the root.
func (h *Hierarchy) Abs(rel string) string {
	return filepath.Join(h.root, filepath.FromSlash(rel))
}

// Prune removes dir and its now-empty ancestors, stopping at the first
// non-empty directory. It never removes the storage root or anything
// outside it.
func (h *Hierarchy) Prune(dir string) {
	for {
		abs, err := filepath.Abs(dir)
		if err != nil || abs == h.root {
			return
		}
		if rel, err := filepath.Rel(h.root, abs); err != nil || !withinRoot(rel) {
			return
		}
		entries, err := os.ReadDir(abs)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(abs); err != nil {
			return
		}
		dir = filepath.Dir(abs)
	}
}

// withinRoot reports whether a root-relative path stays inside the root.
func withinRoot(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
