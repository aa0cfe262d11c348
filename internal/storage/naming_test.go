package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{name: "plain", raw: "Acme Corp", fallback: "merchant", want: "Acme-Corp"},
		{name: "already clean", raw: "Acme-Corp", fallback: "merchant", want: "Acme-Corp"},
		{name: "run collapses to single dash", raw: "Acme & Co", fallback: "merchant", want: "Acme-Co"},
		{name: "path separators stripped", raw: "a/b\\c", fallback: "x", want: "a-b-c"},
		{name: "leading and trailing trimmed", raw: "  Acme!  ", fallback: "x", want: "Acme"},
		{name: "unicode letters kept", raw: "Café München", fallback: "x", want: "Café-München"},
		{name: "empty uses fallback", raw: "", fallback: "merchant", want: "merchant"},
		{name: "only junk uses fallback", raw: "@#$%", fallback: "month", want: "month"},
		{name: "dots and underscores kept", raw: "v1.2_final", fallback: "x", want: "v1.2_final"},
		{name: "single dot uses fallback", raw: ".", fallback: "merchant", want: "merchant"},
		{name: "dot dot uses fallback", raw: "..", fallback: "merchant", want: "merchant"},
		{name: "triple dot uses fallback", raw: "...", fallback: "month", want: "month"},
		{name: "dots inside a name survive", raw: "a..b", fallback: "x", want: "a..b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSegment(tt.raw, tt.fallback))
		})
	}
}

func TestSanitizeSegmentIdempotent(t *testing.T) {
	inputs := []string{"Acme Corp", "Café & Brot", "a/b\\c", "--x--", "@@@", "", "März 2024"}
	for _, in := range inputs {
		once := SanitizeSegment(in, "fb")
		assert.Equal(t, once, SanitizeSegment(once, "fb"), "input %q", in)
	}
}

func TestDirSegment(t *testing.T) {
	assert.Equal(t, "Acme-Corp", DirSegment("Acme Corp", "merchant"))
	// Strict variant rejects non-ASCII letters.
	assert.Equal(t, "Caf", DirSegment("Café", "merchant"))
	assert.Equal(t, "merchant", DirSegment("ΘΨΩ", "merchant"))
	assert.Equal(t, "merchant", DirSegment("", "merchant"))
	// Dot-only segments would collapse a level under filepath.Join.
	assert.Equal(t, "merchant", DirSegment(".", "merchant"))
	assert.Equal(t, "merchant", DirSegment("..", "merchant"))
	assert.Equal(t, "month", DirSegment("..", "month"))
}

func TestYearSegment(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "2024", want: "2024"},
		{raw: "FY 2024", want: "2024"},
		{raw: "20x24", want: "2024"},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := YearSegment(tt.raw)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidYear, "input %q", tt.raw)
		} else {
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		}
	}
}
