package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"docvault/internal/ingest"
	"docvault/internal/model"
	"docvault/internal/service"
)

const (
	maxNotesLen    = 2000
	maxMerchantLen = 200
	minYear        = 1900
	maxYear        = 9999
)

// ListDocuments returns documents filtered by merchant/year/month with
// limit & offset pagination.
func ListDocuments(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		filter := service.ListFilter{
			MerchantName: c.Query("merchant"),
			Month:        c.Query("month"),
		}
		if y := c.Query("year"); y != "" {
			year, err := strconv.Atoi(y)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_YEAR", "invalid year")
			}
			filter.Year = year
		}

		res, err := docSvc.List(c.UserContext(), filter, limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// IngestDocuments accepts a multipart upload (field name: files, repeatable)
// plus year/merchant_name/month/tags/notes fields and creates one document
// per resulting file. An all-image batch is merged into a single PDF.
func IngestDocuments(docSvc service.DocumentService, uploadDir string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "multipart form data is required")
		}
		headers := form.File["files"]
		if len(headers) == 0 {
			return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
		}

		meta, errCode, errMsg := parseMeta(form.Value)
		if errCode != "" {
			return writeError(c, fiber.StatusBadRequest, errCode, errMsg)
		}

		files, err := spoolUploads(headers, uploadDir)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "UPLOAD_SPOOL_ERROR", "cannot store uploaded files")
		}

		docs, err := docSvc.Ingest(c.UserContext(), files, *meta)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrMixedBatch):
				return writeError(c, fiber.StatusUnprocessableEntity, "UNSUPPORTED_MIXED_BATCH",
					"mixing image files with other document types in a single upload is not supported")
			case errors.Is(err, service.ErrNoFiles):
				return writeError(c, fiber.StatusBadRequest, "FILES_REQUIRED", "at least one file is required")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(docs)
	}
}

// GetDocument returns a single document by ID.
func GetDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := docSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	}
}

// updateRequest is the PATCH body; absent fields are left unchanged.
type updateRequest struct {
	Year         *int         `json:"year"`
	MerchantName *string      `json:"merchant_name"`
	Month        *string      `json:"month"`
	Tags         *[]model.Tag `json:"tags"`
	Notes        *string      `json:"notes"`
}

// UpdateDocument applies a partial metadata edit. A year/merchant/month
// change relocates the stored file; persistence failures leave both the
// record and the file untouched.
func UpdateDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req updateRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		}
		if code, msg := validateUpdate(&req); code != "" {
			return writeError(c, fiber.StatusBadRequest, code, msg)
		}

		doc, err := docSvc.Update(c.UserContext(), id, service.DocumentUpdate{
			Year:         req.Year,
			MerchantName: req.MerchantName,
			Month:        req.Month,
			Tags:         req.Tags,
			Notes:        req.Notes,
		})
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes the record, its backing file and any emptied
// ancestor directories.
func DeleteDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := docSvc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument streams the stored file for preview/download/reprint.
func DownloadDocument(docSvc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		path, doc, err := docSvc.File(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderContentType, doc.MimeType)
		return c.Download(path, doc.OriginalName)
	}
}

// parseMeta validates the shared upload metadata fields.
func parseMeta(values map[string][]string) (*service.DocumentMeta, string, string) {
	first := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	year, err := strconv.Atoi(first("year"))
	if err != nil || year < minYear || year > maxYear {
		return nil, "INVALID_YEAR", "year must be an integer between 1900 and 9999"
	}

	merchant := first("merchant_name")
	if merchant == "" || len(merchant) > maxMerchantLen {
		return nil, "INVALID_MERCHANT", "merchant_name is required (max 200 characters)"
	}

	month := first("month")
	if !model.ValidMonth(month) {
		return nil, "INVALID_MONTH", "month must be a canonical English month name"
	}

	notes := first("notes")
	if len(notes) > maxNotesLen {
		return nil, "INVALID_NOTES", "notes must not exceed 2000 characters"
	}

	var tags []model.Tag
	if raw := first("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, "INVALID_TAGS", "tags must be a JSON array of {name, price} objects"
		}
		for _, tag := range tags {
			if tag.Name == "" || tag.Price < 0 {
				return nil, "INVALID_TAGS", "each tag needs a non-empty name and a price >= 0"
			}
		}
	}

	return &service.DocumentMeta{
		Year:         year,
		MerchantName: merchant,
		Month:        month,
		Tags:         tags,
		Notes:        notes,
	}, "", ""
}

// validateUpdate checks the shape of fields that are present.
func validateUpdate(req *updateRequest) (string, string) {
	if req.Year != nil && (*req.Year < minYear || *req.Year > maxYear) {
		return "INVALID_YEAR", "year must be an integer between 1900 and 9999"
	}
	if req.MerchantName != nil && (*req.MerchantName == "" || len(*req.MerchantName) > maxMerchantLen) {
		return "INVALID_MERCHANT", "merchant_name is required (max 200 characters)"
	}
	if req.Month != nil && !model.ValidMonth(*req.Month) {
		return "INVALID_MONTH", "month must be a canonical English month name"
	}
	if req.Notes != nil && len(*req.Notes) > maxNotesLen {
		return "INVALID_NOTES", "notes must not exceed 2000 characters"
	}
	if req.Tags != nil {
		for _, tag := range *req.Tags {
			if tag.Name == "" || tag.Price < 0 {
				return "INVALID_TAGS", "each tag needs a non-empty name and a price >= 0"
			}
		}
	}
	return "", ""
}

// spoolUploads copies multipart parts to temp files so the core can work
// with paths instead of streams.
func spoolUploads(headers []*multipart.FileHeader, uploadDir string) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		f, err := spoolOne(fh, uploadDir)
		if err != nil {
			for _, spooled := range files {
				_ = os.Remove(spooled.Path)
			}
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func spoolOne(fh *multipart.FileHeader, uploadDir string) (ingest.File, error) {
	src, err := fh.Open()
	if err != nil {
		return ingest.File{}, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(uploadDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return ingest.File{}, err
	}
	size, err := io.Copy(tmp, src)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return ingest.File{}, err
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ingest.File{
		Path:         tmp.Name(),
		OriginalName: fh.Filename,
		MimeType:     ct,
		Size:         size,
	}, nil
}
