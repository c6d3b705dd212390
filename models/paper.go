package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Paper represents the papers table
type Paper struct {
	ID        int64          `db:"id" json:"id"`
	Code      string         `db:"paper_code" json:"paper_code"`
	Name      string         `db:"paper_name" json:"paper_name"`
	Semester  sql.NullString `db:"semester" json:"semester,omitempty"`
	Year      sql.NullInt64  `db:"year" json:"year,omitempty"`
	Location  sql.NullString `db:"location" json:"location,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// PaperSummary represents a row of the paper_summary view
type PaperSummary struct {
	Paper
	TotalSubmissions int                 `db:"total_submissions" json:"total_submissions"`
	AverageScore     decimal.NullDecimal `db:"average_score" json:"average_score"`
}
