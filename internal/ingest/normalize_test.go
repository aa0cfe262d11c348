package ingest

import (
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegFile(t *testing.T, dir, name string) File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
	st, err := os.Stat(path)
	require.NoError(t, err)
	return File{Path: path, OriginalName: name, MimeType: "image/jpeg", Size: st.Size()}
}

func pdfFile(t *testing.T, dir, name string) File {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644))
	return File{Path: path, OriginalName: name, MimeType: "application/pdf", Size: 13}
}

func TestNormalizeAllImages(t *testing.T) {
	dir := t.TempDir()
	mergeDir := t.TempDir()
	files := []File{
		jpegFile(t, dir, "p1.jpg"),
		jpegFile(t, dir, "p2.jpg"),
		jpegFile(t, dir, "p3.jpg"),
	}

	n := NewNormalizer(mergeDir)
	res, err := n.Normalize(files, "Acme-March-2024")
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	require.Len(t, res.Generated, 1)
	assert.Equal(t, res.Files[0], res.Generated[0])
	assert.Equal(t, "application/pdf", res.Files[0].MimeType)
	assert.FileExists(t, res.Files[0].Path)

	// Originals are consumed by the merge.
	for _, f := range files {
		assert.NoFileExists(t, f.Path)
	}
}

func TestNormalizeMixedBatch(t *testing.T) {
	dir := t.TempDir()
	img := jpegFile(t, dir, "scan.jpg")
	doc := pdfFile(t, dir, "invoice.pdf")

	n := NewNormalizer(t.TempDir())
	_, err := n.Normalize([]File{img, doc}, "")
	assert.ErrorIs(t, err, ErrMixedBatch)

	// Neither file is touched.
	assert.FileExists(t, img.Path)
	assert.FileExists(t, doc.Path)
}

func TestNormalizePassthrough(t *testing.T) {
	dir := t.TempDir()
	files := []File{
		pdfFile(t, dir, "a.pdf"),
		pdfFile(t, dir, "b.pdf"),
	}

	n := NewNormalizer(t.TempDir())
	res, err := n.Normalize(files, "hint")
	require.NoError(t, err)

	assert.Equal(t, files, res.Files)
	assert.Empty(t, res.Generated)
	for _, f := range files {
		assert.FileExists(t, f.Path)
	}
}

func TestNormalizeEmptyBatch(t *testing.T) {
	n := NewNormalizer(t.TempDir())
	res, err := n.Normalize(nil, "")
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Generated)
}

func TestNormalizeBrokenImagePropagatesMergeError(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(broken, []byte("junk"), 0o644))

	n := NewNormalizer(t.TempDir())
	_, err := n.Normalize([]File{{Path: broken, OriginalName: "broken.jpg", MimeType: "image/jpeg"}}, "")
	assert.Error(t, err)

	// Failed merges do not consume the originals.
	assert.FileExists(t, broken)
}
