package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PendingRelocation is the tentative half of a two-phase document move.
// BeginRelocation moves and renames the file; the caller then persists the
// updated record and either Commit()s (relocation becomes final, the old
// directory chain is pruned) or Rollback()s (the file returns to its
// original path and the new directory chain is pruned). After either call
// the value is spent.
type PendingRelocation struct {
	h        *Hierarchy
	original string // absolute path before the relocation
	final    string // absolute path after move + rename
	done     bool
}

// BeginRelocation moves the file recorded at the relative path rel into the
// directory for the new year/merchant/month and renames it to
// <prefix>-<merchant>-<month>-<year><ext>, where prefix is the ingestion
// timestamp extracted from the current stored name. Any partial move is
// unwound before an error is returned, so a failed Begin leaves the file
// exactly where it was.
func (h *Hierarchy) BeginRelocation(rel string, year int, merchant, month string) (*PendingRelocation, error) {
	original := h.Abs(rel)

	moved, err := h.Place(original, year, merchant, month)
	if err != nil {
		// Rename is atomic, so a failed Place left the source untouched.
		return nil, fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}

	name, err := relocatedName(filepath.Base(moved), year, merchant, month)
	if err != nil {
		undoMove(moved, original)
		h.Prune(filepath.Dir(moved))
		return nil, fmt.Errorf("%w: %v", ErrRelocationFailed, err)
	}

	final := moved
	if name != filepath.Base(moved) {
		final = filepath.Join(filepath.Dir(moved), name)
		if _, err := os.Lstat(final); err == nil {
			undoMove(moved, original)
			h.Prune(filepath.Dir(moved))
			return nil, fmt.Errorf("%w: destination %s already exists", ErrRelocationFailed, name)
		}
		if err := os.Rename(moved, final); err != nil {
			undoMove(moved, original)
			h.Prune(filepath.Dir(moved))
			return nil, fmt.Errorf("%w: rename %s: %v", ErrRelocationFailed, name, err)
		}
	}

	return &PendingRelocation{h: h, original: original, final: final}, nil
}

// FinalPath returns the absolute path the file occupies while the
// relocation is pending.
func (p *PendingRelocation) FinalPath() string {
	return p.final
}

// StoredName returns the new on-disk basename.
func (p *PendingRelocation) StoredName() string {
	return filepath.Base(p.final)
}

// Rel returns the new storage path relative to the root.
func (p *PendingRelocation) Rel() (string, error) {
	return p.h.Rel(p.final)
}

// Commit finalizes the relocation and prunes the directory chain the file
// left behind.
func (p *PendingRelocation) Commit() {
	if p.done {
		return
	}
	p.done = true
	p.h.Prune(filepath.Dir(p.original))
}

// Rollback moves the file back to its original path, recreating the
// original directory if needed, and prunes the abandoned destination chain.
// Safe to call after Commit (no-op).
func (p *PendingRelocation) Rollback() error {
	if p.done {
		return nil
	}
	p.done = true
	if err := os.MkdirAll(filepath.Dir(p.original), 0o755); err != nil {
		return fmt.Errorf("restore directory %s: %w", filepath.Dir(p.original), err)
	}
	if err := os.Rename(p.final, p.original); err != nil {
		return fmt.Errorf("restore %s: %w", filepath.Base(p.original), err)
	}
	p.h.Prune(filepath.Dir(p.final))
	return nil
}

// relocatedName derives the post-relocation basename, preserving the
// ingestion-timestamp prefix of the current one.
func relocatedName(current string, year int, merchant, month string) (string, error) {
	ys, err := YearSegment(strconv.Itoa(year))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s-%s%s",
		timestampPrefix(current),
		SanitizeSegment(merchant, fallbackMerchant),
		SanitizeSegment(month, fallbackMonth),
		ys,
		filepath.Ext(current),
	), nil
}

// timestampPrefix extracts the leading token of a stored filename: the
// substring before the first '-', else the leading run of digits, else a
// freshly minted timestamp.
func timestampPrefix(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.Index(base, "-"); i > 0 {
		return base[:i]
	}
	if d := leadingDigits.FindString(base); d != "" {
		return d
	}
	return strconv.FormatInt(UniqueStamp(), 10)
}

func undoMove(from, to string) {
	_ = os.MkdirAll(filepath.Dir(to), 0o755)
	_ = os.Rename(from, to)
}
