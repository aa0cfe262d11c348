package storage

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Package-level name sanitization for path segments. Two distinct inputs
// may collide to the same sanitized output ("Acme & Co" and "Acme - Co"
// both become "Acme-Co"); that is an accepted limitation. Stored filenames
// carry a timestamp prefix, so colliding segments share a directory without
// overwriting each other's files.

var (
	segmentDisallowed = regexp.MustCompile(`[^\pL\pN._-]+`)
	dirDisallowed     = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	leadingDigits     = regexp.MustCompile(`^\d+`)
	nonDigits         = regexp.MustCompile(`\D`)
)

// SanitizeSegment turns raw into a filesystem-safe path segment. Unicode is
// normalized (NFKC), path separators are stripped, and any run of characters
// outside the allow-list (letters, digits, '.', '_', '-') collapses to a
// single '-'. Leading and trailing '-' are trimmed. If raw is empty or
// sanitizes to nothing, fallback is returned. Deterministic and idempotent.
func SanitizeSegment(raw, fallback string) string {
	return sanitize(raw, fallback, segmentDisallowed)
}

// DirSegment is the strict variant used for directory names: only ASCII
// alphanumerics plus '.', '_' and '-' survive.
func DirSegment(raw, fallback string) string {
	return sanitize(raw, fallback, dirDisallowed)
}

func sanitize(raw, fallback string, disallowed *regexp.Regexp) string {
	if raw == "" {
		return fallback
	}
	s := norm.NFKC.String(raw)
	s = strings.NewReplacer("/", "-", "\\", "-").Replace(s)
	s = disallowed.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	// A dot-only segment ("." or "..") would collapse a path level under
	// filepath.Join instead of naming one.
	if strings.Trim(s, ".") == "" {
		return fallback
	}
	return s
}

// YearSegment reduces the stringified year to its digits. It fails with
// ErrInvalidYear when nothing remains.
func YearSegment(raw string) (string, error) {
	s := nonDigits.ReplaceAllString(raw, "")
	if s == "" {
		return "", ErrInvalidYear
	}
	return s, nil
}
