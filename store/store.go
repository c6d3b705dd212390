// Package store persists papers, students, submissions and upload audits.
//
// Writes only happen inside WithinTx. Every write that can collide with a
// concurrent ingestion is an upsert keyed by a uniqueness constraint held
// by the store itself, so callers never check-then-insert.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nonsonwune/boe_visualizer/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// StoreError wraps a failure of the underlying database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: errors.WithStack(err)}
}

// Reader holds the read-side queries.
type Reader interface {
	PaperByCode(ctx context.Context, code string) (models.Paper, error)
	// ListPapers orders by year desc, semester desc, paper code asc;
	// papers without a year or semester sort last.
	ListPapers(ctx context.Context) ([]models.PaperSummary, error)
	PaperStatistics(ctx context.Context, paperID int64) (models.PaperStatistics, error)
	// PaperSubmissions returns submissions ordered by external student id.
	PaperSubmissions(ctx context.Context, paperID int64) ([]models.SubmissionRecord, error)
	PaperUploads(ctx context.Context, paperID int64) ([]models.CSVUpload, error)
}

// Tx is the write side of a single unit of work.
type Tx interface {
	PaperByCode(ctx context.Context, code string) (models.Paper, error)
	// CreatePaper inserts p, or returns the stored paper if the code
	// already exists.
	CreatePaper(ctx context.Context, p models.Paper) (models.Paper, error)
	// UpsertStudent inserts s keyed by StudentID. On conflict only the
	// name and email fields that are set on s overwrite the stored ones.
	UpsertStudent(ctx context.Context, s models.Student) (models.Student, error)
	// UpsertSubmission inserts s keyed by (PaperID, StudentID); on
	// conflict it overwrites grade, score, max score and percentage.
	// inserted reports which branch was taken.
	UpsertSubmission(ctx context.Context, s models.Submission) (stored models.Submission, inserted bool, err error)
	UpsertSubmissionField(ctx context.Context, f models.SubmissionField) error
	CreateUpload(ctx context.Context, u models.CSVUpload) error
	FinalizeUpload(ctx context.Context, id uuid.UUID, imported, updated int) error
}

// Store is a transactional canonical store.
type Store interface {
	Reader
	// WithinTx runs fn in one transaction. fn returning an error, or ctx
	// being cancelled, rolls back everything fn wrote.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
