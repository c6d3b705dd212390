package models

import (
	"database/sql"
	"time"
)

// Submission represents the submissions table: one graded result per
// (paper, student) pair.
type Submission struct {
	ID         int64           `db:"id" json:"id"`
	PaperID    int64           `db:"paper_id" json:"paper_id"`
	StudentID  int64           `db:"student_id" json:"student_id"`
	Grade      sql.NullString  `db:"grade" json:"grade,omitempty"`
	Score      sql.NullFloat64 `db:"score" json:"score,omitempty"`
	MaxScore   sql.NullFloat64 `db:"max_score" json:"max_score,omitempty"`
	Percentage sql.NullFloat64 `db:"percentage" json:"percentage,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// SubmissionField represents the submission_fields table. It keeps grade
// sheet columns that have no canonical home.
type SubmissionField struct {
	ID           int64  `db:"id" json:"id"`
	SubmissionID int64  `db:"submission_id" json:"submission_id"`
	Name         string `db:"field_name" json:"field_name"`
	Value        string `db:"field_value" json:"field_value"`
}

// SubmissionRecord is a submission joined with its student and overflow
// fields, as read back for exports.
type SubmissionRecord struct {
	Submission
	Student Student           `db:"student" json:"student"`
	Fields  map[string]string `db:"-" json:"fields,omitempty"`
}
