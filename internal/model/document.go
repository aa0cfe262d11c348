package model

import "time"

// Tag is a priced label attached to a document (e.g. a line item on a
// scanned receipt). Tags are replaced wholesale on edit, never patched.
type Tag struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Document represents one archived file in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// StoragePath is relative to the configured storage root and always points
// into the year/merchant/month directory that matches the Year, MerchantName
// and Month fields. StoredName is the current on-disk basename; OriginalName
// is the name the file had at upload time and never changes.
type Document struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	StoragePath  string    `json:"storage_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Tags         []Tag     `json:"tags"`
	Notes        string    `json:"notes,omitempty"`
	Year         int       `json:"year"`
	MerchantName string    `json:"merchant_name"`
	Month        string    `json:"month"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
