package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Tags are stored as a JSONB array of {name, price} objects.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, original_name, stored_name, storage_path, mime_type, size, tags, notes, year, merchant_name, month, created_at, updated_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + documentColumns

	tags, err := marshalTags(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OriginalName,
		doc.StoredName,
		doc.StoragePath,
		doc.MimeType,
		doc.Size,
		tags,
		doc.Notes,
		doc.Year,
		doc.MerchantName,
		doc.Month,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// List returns documents matching the filter using LIMIT/OFFSET pagination
// and a total count.
func (r *DocumentPostgres) List(ctx context.Context, f repository.Filter, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where, args := buildFilter(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	qList := fmt.Sprintf(`
		SELECT `+documentColumns+`
		FROM documents%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Update saves all mutable fields of an existing row.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET stored_name = $2, storage_path = $3, tags = $4, notes = $5,
		    year = $6, merchant_name = $7, month = $8, updated_at = now()
		WHERE id = $1
		RETURNING ` + documentColumns

	tags, err := marshalTags(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.StoredName,
		doc.StoragePath,
		tags,
		doc.Notes,
		doc.Year,
		doc.MerchantName,
		doc.Month,
	)
	return scanDocument(row)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	// Ignore rows affected; existence checks happen at the service layer.
	_, _ = res.RowsAffected()
	return nil
}

func buildFilter(f repository.Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Year != 0 {
		args = append(args, f.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}
	if f.MerchantName != "" {
		args = append(args, "%"+f.MerchantName+"%")
		conds = append(conds, fmt.Sprintf("merchant_name ILIKE $%d", len(args)))
	}
	if f.Month != "" {
		args = append(args, f.Month)
		conds = append(conds, fmt.Sprintf("month = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalTags(tags []model.Tag) ([]byte, error) {
	if tags == nil {
		tags = []model.Tag{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	return b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	var tags []byte
	if err := row.Scan(
		&d.ID,
		&d.OriginalName,
		&d.StoredName,
		&d.StoragePath,
		&d.MimeType,
		&d.Size,
		&tags,
		&d.Notes,
		&d.Year,
		&d.MerchantName,
		&d.Month,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &d.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	return &d, nil
}
