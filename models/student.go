package models

import (
	"database/sql"
	"time"
)

// Student represents the students table. StudentID is the external
// identifier printed on grade sheets; ID is the surrogate key.
type Student struct {
	ID        int64          `db:"id" json:"id"`
	StudentID string         `db:"student_id" json:"student_id"`
	FirstName sql.NullString `db:"first_name" json:"first_name,omitempty"`
	LastName  sql.NullString `db:"last_name" json:"last_name,omitempty"`
	Email     sql.NullString `db:"email" json:"email,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
