// Package ingest normalizes a heterogeneous upload batch before it enters
// the storage hierarchy: an all-image batch collapses into one generated
// PDF, a mixed image/non-image batch is rejected, and anything else passes
// through unchanged.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"docvault/internal/pdf"
)

// ErrMixedBatch means the upload combined image files with other document
// types, which is not supported.
var ErrMixedBatch = errors.New("mixing image files with other document types in a single upload is not supported")

// File describes one uploaded (or generated) file blob on local disk.
type File struct {
	Path         string
	OriginalName string
	MimeType     string
	Size         int64
}

// Result is the normalized batch. Generated lists files the normalizer
// created itself (currently at most one merged PDF); those also appear in
// Files.
type Result struct {
	Files     []File
	Generated []File
}

// Normalizer decides how an upload batch enters the system.
type Normalizer struct {
	mergeDir string
}

// NewNormalizer returns a Normalizer that writes generated files to mergeDir.
func NewNormalizer(mergeDir string) *Normalizer {
	return &Normalizer{mergeDir: mergeDir}
}

// Normalize classifies the batch by MIME type. All images: merge into one
// PDF and remove the originals (best effort). Some but not all images:
// fail with ErrMixedBatch, touching nothing. No images: pass through.
// An empty batch yields an empty result; callers are expected to reject
// empty uploads earlier.
func (n *Normalizer) Normalize(files []File, nameHint string) (*Result, error) {
	if len(files) == 0 {
		return &Result{}, nil
	}

	images := 0
	for _, f := range files {
		if isImage(f.MimeType) {
			images++
		}
	}

	switch {
	case images == len(files):
		return n.merge(files, nameHint)
	case images > 0:
		return nil, ErrMixedBatch
	default:
		return &Result{Files: files}, nil
	}
}

func (n *Normalizer) merge(files []File, nameHint string) (*Result, error) {
	inputs := make([]pdf.Image, 0, len(files))
	for _, f := range files {
		inputs = append(inputs, pdf.Image{
			Path:         f.Path,
			OriginalName: f.OriginalName,
			MimeType:     f.MimeType,
		})
	}

	merged, err := pdf.MergeImages(inputs, nameHint, n.mergeDir)
	if err != nil {
		return nil, fmt.Errorf("merge upload batch: %w", err)
	}

	// The originals are folded into the merged PDF; removing them is
	// cleanup, not a correctness path, so failures are swallowed.
	for _, f := range files {
		_ = os.Remove(f.Path)
	}

	out := File{
		Path:         merged.Path,
		OriginalName: merged.Filename,
		MimeType:     merged.MimeType,
		Size:         merged.Size,
	}
	return &Result{Files: []File{out}, Generated: []File{out}}, nil
}

func isImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}
