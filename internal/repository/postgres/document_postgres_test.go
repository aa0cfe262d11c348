package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var documentCols = []string{
	"id", "original_name", "stored_name", "storage_path", "mime_type", "size",
	"tags", "notes", "year", "merchant_name", "month", "created_at", "updated_at",
}

func docRow(doc *model.Document, tags string) *sqlmock.Rows {
	return sqlmock.NewRows(documentCols).AddRow(
		doc.ID, doc.OriginalName, doc.StoredName, doc.StoragePath, doc.MimeType,
		doc.Size, []byte(tags), doc.Notes, doc.Year, doc.MerchantName, doc.Month,
		doc.CreatedAt, doc.UpdatedAt,
	)
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:           "test-uuid",
		OriginalName: "invoice.pdf",
		StoredName:   "1700000000000-invoice.pdf",
		StoragePath:  "2024/Acme-Corp/March/1700000000000-invoice.pdf",
		MimeType:     "application/pdf",
		Size:         123,
		Tags:         []model.Tag{{Name: "office supplies", Price: 49.99}},
		Year:         2024,
		MerchantName: "Acme Corp",
		Month:        "March",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.OriginalName, doc.StoredName, doc.StoragePath, doc.MimeType,
			doc.Size, []byte(`[{"name":"office supplies","price":49.99}]`), doc.Notes,
			doc.Year, doc.MerchantName, doc.Month, doc.CreatedAt, doc.UpdatedAt).
		WillReturnRows(docRow(doc, `[{"name":"office supplies","price":49.99}]`))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, doc.Tags, result.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		doc := &model.Document{ID: "id-1", Year: 2024, MerchantName: "Acme", Month: "March"}
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
			WithArgs("id-1").
			WillReturnRows(docRow(doc, `[]`))

		got, err := repo.FindByID(ctx, "id-1")
		assert.NoError(t, err)
		assert.Equal(t, "id-1", got.ID)
		assert.Equal(t, 2024, got.Year)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE id").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("unfiltered", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(10, 0).
			WillReturnRows(docRow(&model.Document{ID: "a"}, `[]`).AddRow(
				"b", "", "", "p2", "", 0, []byte(`[]`), "", 0, "", "", time.Time{}, time.Time{},
			))

		res, err := repo.List(ctx, repository.Filter{}, repository.PageQuery{Limit: 10, Offset: 0})
		assert.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		assert.Len(t, res.Items, 2)
	})

	t.Run("filtered by year and month", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT(.+) WHERE year = (.+) AND month =").
			WithArgs(2024, "March").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE year = (.+) AND month =").
			WithArgs(2024, "March", 10, 0).
			WillReturnRows(docRow(&model.Document{ID: "a", Year: 2024, Month: "March"}, `[]`))

		res, err := repo.List(ctx, repository.Filter{Year: 2024, Month: "March"}, repository.PageQuery{Limit: 10, Offset: 0})
		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	doc := &model.Document{
		ID:           "id-1",
		StoredName:   "1700000000000-Acme-April-2024.pdf",
		StoragePath:  "2024/Acme/April/1700000000000-Acme-April-2024.pdf",
		Tags:         []model.Tag{},
		Year:         2024,
		MerchantName: "Acme",
		Month:        "April",
	}

	mock.ExpectQuery("UPDATE documents").
		WithArgs(doc.ID, doc.StoredName, doc.StoragePath, []byte(`[]`), doc.Notes,
			doc.Year, doc.MerchantName, doc.Month).
		WillReturnRows(docRow(doc, `[]`))

	got, err := repo.Update(ctx, doc)
	assert.NoError(t, err)
	assert.Equal(t, doc.StoragePath, got.StoragePath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(ctx, "id-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
