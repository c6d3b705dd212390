package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CSVUpload represents the csv_uploads audit table
type CSVUpload struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	PaperID         int64          `db:"paper_id" json:"paper_id"`
	Filename        string         `db:"filename" json:"filename"`
	OriginalHeaders pq.StringArray `db:"original_headers" json:"original_headers"`
	RecordsImported int            `db:"records_imported" json:"records_imported"`
	RecordsUpdated  int            `db:"records_updated" json:"records_updated"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
