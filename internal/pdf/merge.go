// Package pdf combines a batch of raster images into a single PDF file,
// one page per image, each page sized to the image's pixel dimensions.
package pdf

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"docvault/internal/storage"
)

var (
	// ErrNoImages means the merge batch was empty.
	ErrNoImages = errors.New("no images to merge")
	// ErrMergeFailed means PDF generation failed partway. No partial output
	// file remains on disk when this is returned.
	ErrMergeFailed = errors.New("image merge failed")
)

// Default page size in points (A4 portrait), used when an image's pixel
// dimensions cannot be read.
const (
	defaultPageWidth  = 595.0
	defaultPageHeight = 842.0
)

// Image is one merge input. OriginalName is the user-supplied filename and
// is only consulted for naming the output when no hint is given.
type Image struct {
	Path         string
	OriginalName string
	MimeType     string
}

// Merged describes the single generated PDF.
type Merged struct {
	Path     string
	Filename string
	MimeType string
	Size     int64
}

// MergeImages renders the images, in order, into one PDF written to dir.
// The output filename is <timestamp>-<sanitized base>.pdf where the base
// derives from nameHint, or from the first image's original name if the
// hint is empty. Inputs are left in place; deleting them is the caller's
// responsibility.
func MergeImages(images []Image, nameHint, dir string) (*Merged, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	base := nameHint
	if base == "" {
		first := images[0].OriginalName
		base = strings.TrimSuffix(first, filepath.Ext(first))
	}
	filename := fmt.Sprintf("%s-%s.pdf",
		strconv.FormatInt(storage.UniqueStamp(), 10),
		storage.SanitizeSegment(base, "scan"),
	)
	out := filepath.Join(dir, filename)

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: defaultPageWidth, Ht: defaultPageHeight},
	})
	for _, img := range images {
		imgType, err := imageType(img)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMergeFailed, err)
		}
		w, h := pageSize(img.Path)
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})
		doc.ImageOptions(img.Path, 0, 0, w, h, false,
			gofpdf.ImageOptions{ImageType: imgType}, 0, "")
		if err := doc.Error(); err != nil {
			return nil, fmt.Errorf("%w: render %s: %v", ErrMergeFailed, filepath.Base(img.Path), err)
		}
	}

	if err := doc.OutputFileAndClose(out); err != nil {
		_ = os.Remove(out) // never leave an orphaned partial file
		return nil, fmt.Errorf("%w: write %s: %v", ErrMergeFailed, filename, err)
	}

	st, err := os.Stat(out)
	if err != nil {
		_ = os.Remove(out)
		return nil, fmt.Errorf("%w: stat output: %v", ErrMergeFailed, err)
	}
	return &Merged{
		Path:     out,
		Filename: filename,
		MimeType: "application/pdf",
		Size:     st.Size(),
	}, nil
}

// imageType maps a MIME type to the format name gofpdf expects.
func imageType(img Image) (string, error) {
	switch img.MimeType {
	case "image/jpeg", "image/jpg":
		return "JPG", nil
	case "image/png":
		return "PNG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image type %q for %s", img.MimeType, filepath.Base(img.Path))
	}
}

// pageSize reads the image's pixel dimensions, falling back to A4 when they
// are unavailable.
func pageSize(path string) (float64, float64) {
	f, err := os.Open(path)
	if err != nil {
		return defaultPageWidth, defaultPageHeight
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return defaultPageWidth, defaultPageHeight
	}
	return float64(cfg.Width), float64(cfg.Height)
}
