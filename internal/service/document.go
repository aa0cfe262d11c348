package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/ingest"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	ErrNotFound   = errors.New("document not found")
	// ErrNoFiles means an ingestion call carried no files at all.
	ErrNoFiles = errors.New("at least one file is required")
	// ErrPersistenceFailed wraps metadata-store errors. When it follows a
	// filesystem relocation, the relocation has already been rolled back.
	ErrPersistenceFailed = errors.New("persistence failed")
)

// DocumentMeta is the shared metadata applied to every document created
// from one upload batch.
type DocumentMeta struct {
	Year         int
	MerchantName string
	Month        string
	Tags         []model.Tag
	Notes        string
}

// DocumentUpdate carries a partial edit. Nil fields are left unchanged;
// Tags, when present, replaces the whole set.
type DocumentUpdate struct {
	Year         *int
	MerchantName *string
	Month        *string
	Tags         *[]model.Tag
	Notes        *string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Year         int
	MerchantName string
	Month        string
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Ingest normalizes the upload batch (merging all-image batches into a
	// single PDF), places each resulting file into the year/merchant/month
	// hierarchy and creates one record per file. Files are committed
	// sequentially: on a mid-batch failure, records already created stay,
	// remaining spooled and generated files are removed best-effort, and
	// the error propagates.
	Ingest(ctx context.Context, files []ingest.File, meta DocumentMeta) ([]model.Document, error)

	// List returns documents matching the filter using limit/offset and a total count.
	List(ctx context.Context, f ListFilter, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// Update applies a partial edit. A year/merchant/month change relocates
	// the backing file first; if the subsequent save fails, the file is
	// moved back before the error is returned.
	Update(ctx context.Context, id string, upd DocumentUpdate) (*model.Document, error)

	// Delete removes the record, then the backing file, then prunes
	// now-empty ancestor directories up to the storage root.
	Delete(ctx context.Context, id string) error

	// File resolves a document's backing file to an absolute path for
	// download/preview.
	File(ctx context.Context, id string) (string, *model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	hier *storage.Hierarchy
	norm *ingest.Normalizer
	repo repository.DocumentRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(hier *storage.Hierarchy, norm *ingest.Normalizer, repo repository.DocumentRepository) DocumentService {
	return &documentService{hier: hier, norm: norm, repo: repo}
}

func (s *documentService) Ingest(ctx context.Context, files []ingest.File, meta DocumentMeta) ([]model.Document, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	hint := fmt.Sprintf("%s-%s-%d", meta.MerchantName, meta.Month, meta.Year)
	res, err := s.norm.Normalize(files, hint)
	if err != nil {
		cleanupFiles(files, nil)
		return nil, fmt.Errorf("normalize upload: %w", err)
	}

	created := make([]model.Document, 0, len(res.Files))
	for i, f := range res.Files {
		name := f
		if !isGenerated(f, res.Generated) {
			stamped, err := stampFile(f)
			if err != nil {
				cleanupFiles(nil, res.Files[i:])
				return nil, err
			}
			name = stamped
		}

		placed, err := s.hier.Place(name.Path, meta.Year, meta.MerchantName, meta.Month)
		if err != nil {
			cleanupFiles(nil, append([]ingest.File{name}, res.Files[i+1:]...))
			return nil, err
		}
		rel, err := s.hier.Rel(placed)
		if err != nil {
			cleanupFiles(nil, res.Files[i+1:])
			_ = os.Remove(placed)
			s.hier.Prune(filepath.Dir(placed))
			return nil, err
		}

		now := time.Now().UTC()
		doc := &model.Document{
			ID:           uuid.New().String(),
			OriginalName: f.OriginalName,
			StoredName:   filepath.Base(placed),
			StoragePath:  rel,
			MimeType:     f.MimeType,
			Size:         f.Size,
			Tags:         meta.Tags,
			Notes:        meta.Notes,
			Year:         meta.Year,
			MerchantName: meta.MerchantName,
			Month:        meta.Month,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		stored, err := s.repo.Create(ctx, doc)
		if err != nil {
			// This file never became durable; remove it and anything not yet
			// placed. Records created for earlier files in the batch stay.
			_ = os.Remove(placed)
			s.hier.Prune(filepath.Dir(placed))
			cleanupFiles(nil, res.Files[i+1:])
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		created = append(created, *stored)
	}
	return created, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentService) List(ctx context.Context, f ListFilter, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx,
		repository.Filter{Year: f.Year, MerchantName: f.MerchantName, Month: f.Month},
		repository.PageQuery{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentService) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, id string, upd DocumentUpdate) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *doc
	if upd.Year != nil {
		next.Year = *upd.Year
	}
	if upd.MerchantName != nil {
		next.MerchantName = *upd.MerchantName
	}
	if upd.Month != nil {
		next.Month = *upd.Month
	}
	if upd.Tags != nil {
		next.Tags = *upd.Tags
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}

	moved := next.Year != doc.Year || next.MerchantName != doc.MerchantName || next.Month != doc.Month
	if !moved {
		saved, err := s.repo.Update(ctx, &next)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
		}
		return saved, nil
	}

	pending, err := s.hier.BeginRelocation(doc.StoragePath, next.Year, next.MerchantName, next.Month)
	if err != nil {
		return nil, err
	}
	rel, err := pending.Rel()
	if err != nil {
		if rbErr := pending.Rollback(); rbErr != nil {
			log.Printf("relocation rollback failed: %v", rbErr)
		}
		return nil, err
	}
	next.StoredName = pending.StoredName()
	next.StoragePath = rel

	saved, err := s.repo.Update(ctx, &next)
	if err != nil {
		// The save is what makes the relocation durable; undo the move and
		// surface the persistence error, never the rollback's.
		if rbErr := pending.Rollback(); rbErr != nil {
			log.Printf("relocation rollback failed: %v", rbErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	pending.Commit()
	return saved, nil
}

// Delete removes the record first; only then is the backing file unlinked
// and the emptied directory chain pruned.
func (s *documentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	abs := s.hier.Abs(doc.StoragePath)
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	s.hier.Prune(filepath.Dir(abs))
	return nil
}

// File resolves the stored file's absolute path.
func (s *documentService) File(ctx context.Context, id string) (string, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	abs := s.hier.Abs(doc.StoragePath)
	if _, err := os.Stat(abs); err != nil {
		return "", nil, fmt.Errorf("stored file missing: %w", err)
	}
	return abs, doc, nil
}

// stampFile renames a spooled upload to its ingestion name
// <timestamp>-<sanitized original base><ext> within its current directory.
// Generated files arrive already stamped by the merger.
func stampFile(f ingest.File) (ingest.File, error) {
	ext := filepath.Ext(f.OriginalName)
	base := strings.TrimSuffix(f.OriginalName, ext)
	name := fmt.Sprintf("%s-%s%s",
		strconv.FormatInt(storage.UniqueStamp(), 10),
		storage.SanitizeSegment(base, "document"),
		ext,
	)
	dest := filepath.Join(filepath.Dir(f.Path), name)
	if err := os.Rename(f.Path, dest); err != nil {
		return ingest.File{}, fmt.Errorf("stamp upload %s: %w", f.OriginalName, err)
	}
	f.Path = dest
	return f, nil
}

func isGenerated(f ingest.File, generated []ingest.File) bool {
	for _, g := range generated {
		if g.Path == f.Path {
			return true
		}
	}
	return false
}

// cleanupFiles removes leftover spooled/generated files after a failure.
// Best effort: errors here must never mask the primary error.
func cleanupFiles(groups ...[]ingest.File) {
	for _, group := range groups {
		for _, f := range group {
			if f.Path == "" {
				continue
			}
			if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
				log.Printf("cleanup failed for %s: %v", f.Path, err)
			}
		}
	}
}
