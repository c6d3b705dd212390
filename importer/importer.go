// Package importer turns grade sheets into canonical paper, student and
// submission records.
package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nonsonwune/boe_visualizer/models"
	"github.com/nonsonwune/boe_visualizer/papercode"
	"github.com/nonsonwune/boe_visualizer/store"
)

// Request is a single ingestion call.
type Request struct {
	PaperCode string `json:"paper_code" validate:"notblank,max=64"`
	CSV       string `json:"csv" validate:"required"`
	// SourceName is recorded on the upload audit. A timestamped name is
	// derived from PaperCode when empty.
	SourceName string `json:"source_name" validate:"max=255"`
	// DryRun runs the whole ingestion and then rolls it back.
	DryRun bool `json:"dry_run"`
}

// ImportSummary reports the outcome of a committed (or dry-run) ingestion.
type ImportSummary struct {
	UploadID        uuid.UUID `json:"upload_id"`
	PaperID         int64     `json:"paper_id"`
	RecordsImported int       `json:"records_imported"`
	RecordsUpdated  int       `json:"records_updated"`
	TotalProcessed  int       `json:"total_processed"`
	DryRun          bool      `json:"dry_run,omitempty"`
}

// ImportStats tallies rows while a sheet is processed.
type ImportStats struct {
	Imported int
	Updated  int
	Skipped  int
}

func (s ImportStats) TotalProcessed() int {
	return s.Imported + s.Updated
}

var errDryRun = errors.New("dry run")

var (
	sanitizePattern = regexp.MustCompile(`[^a-zA-Z0-9\-_()]`)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Importer runs ingestions against a store.
type Importer struct {
	store  store.Store
	logger logrus.FieldLogger
	now    func() time.Time
	newID  func() uuid.UUID
}

func NewImporter(s store.Store, logger logrus.FieldLogger) *Importer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Importer{
		store:  s,
		logger: logger,
		now:    time.Now,
		newID:  uuid.New,
	}
}

// SourceName builds an upload file name for paperCode stamped with at, such
// as "COMPX123-22A_(HAM)_updated_2024-03-01_09-30-00.csv". tag is optional.
func SourceName(paperCode, tag string, at time.Time) string {
	name := sanitizePattern.ReplaceAllString(strings.TrimSpace(paperCode), "_")
	if tag != "" {
		name += "_" + tag
	}
	return name + "_" + at.Format("2006-01-02_15-04-05") + ".csv"
}

// Ingest stores every row of req.CSV against the paper req.PaperCode in a
// single transaction. Nothing is written when an error is returned.
func (im *Importer) Ingest(ctx context.Context, req Request) (ImportSummary, error) {
	if err := validateRequest(req); err != nil {
		return ImportSummary{}, err
	}

	code := strings.TrimSpace(req.PaperCode)
	source := strings.TrimSpace(req.SourceName)
	if source == "" {
		source = SourceName(code, "", im.now())
	}

	headers, records, err := ParseSheet(req.CSV)
	if err != nil {
		return ImportSummary{}, err
	}
	if headers == nil {
		return ImportSummary{}, &EmptyInputError{Source: source}
	}

	logger := im.logger.WithFields(logrus.Fields{"paper": code, "source": source})
	summary := ImportSummary{UploadID: im.newID(), DryRun: req.DryRun}
	var stats ImportStats

	err = im.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		paper, err := resolvePaper(ctx, tx, code)
		if err != nil {
			return err
		}
		summary.PaperID = paper.ID

		err = tx.CreateUpload(ctx, models.CSVUpload{
			ID:              summary.UploadID,
			PaperID:         paper.ID,
			Filename:        source,
			OriginalHeaders: headers,
		})
		if err != nil {
			return err
		}

		mapping := Classify(headers)
		for i, record := range records {
			if err := ctx.Err(); err != nil {
				return errors.Wrapf(err, "ingestion stopped at row %d", i+1)
			}
			row, ok := Normalize(headers, record, mapping)
			if !ok {
				stats.Skipped++
				logger.WithField("row", i+1).Debug("skipping row without student id")
				continue
			}
			inserted, err := storeRow(ctx, tx, paper.ID, row)
			if err != nil {
				return errors.Wrapf(err, "row %d", i+1)
			}
			if inserted {
				stats.Imported++
			} else {
				stats.Updated++
			}
		}

		if err := tx.FinalizeUpload(ctx, summary.UploadID, stats.Imported, stats.Updated); err != nil {
			return err
		}
		if req.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return ImportSummary{}, err
	}

	summary.RecordsImported = stats.Imported
	summary.RecordsUpdated = stats.Updated
	summary.TotalProcessed = stats.TotalProcessed()

	logger.WithFields(logrus.Fields{
		"upload_id": summary.UploadID,
		"imported":  stats.Imported,
		"updated":   stats.Updated,
		"skipped":   stats.Skipped,
		"dry_run":   req.DryRun,
	}).Info("grade sheet ingested")
	return summary, nil
}

// ParseSheet splits CSV text into trimmed headers and data records. Blank
// records are dropped; headers is nil when nothing remains.
func ParseSheet(text string) (headers []string, records [][]string, err error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &ValidationError{Message: "malformed CSV: " + err.Error()}
		}
		if blankRecord(record) {
			continue
		}
		if headers == nil {
			headers = make([]string, len(record))
			for i, h := range record {
				headers[i] = strings.TrimSpace(h)
			}
			continue
		}
		records = append(records, record)
	}
	return headers, records, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func validateRequest(req Request) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: err.Error()}
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		msg := "is invalid"
		switch fe.Tag() {
		case "required", "notblank":
			msg = "is required"
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		}
		fields = append(fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return &ValidationError{Message: "invalid ingestion request", Fields: fields}
}

// resolvePaper returns the paper for code, creating it from the decoded code
// when it does not exist yet.
func resolvePaper(ctx context.Context, tx store.Tx, code string) (models.Paper, error) {
	paper, err := tx.PaperByCode(ctx, code)
	if err == nil {
		return paper, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.Paper{}, err
	}

	paper = models.Paper{Code: code, Name: code}
	if parsed, err := papercode.Parse(code); err == nil {
		paper.Name = parsed.Subject
		paper.Semester = sql.NullString{String: parsed.Semester, Valid: true}
		paper.Year = sql.NullInt64{Int64: int64(parsed.Year), Valid: true}
		paper.Location = sql.NullString{String: parsed.Location, Valid: parsed.Location != ""}
	}
	return tx.CreatePaper(ctx, paper)
}

func storeRow(ctx context.Context, tx store.Tx, paperID int64, row Row) (inserted bool, err error) {
	student, err := tx.UpsertStudent(ctx, models.Student{
		StudentID: row.StudentID,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Email:     row.Email,
	})
	if err != nil {
		return false, err
	}

	sub, inserted, err := tx.UpsertSubmission(ctx, models.Submission{
		PaperID:    paperID,
		StudentID:  student.ID,
		Grade:      row.Grade,
		Score:      row.Score,
		MaxScore:   row.MaxScore,
		Percentage: row.Percentage,
	})
	if err != nil {
		return false, err
	}

	for _, f := range row.Fields {
		err := tx.UpsertSubmissionField(ctx, models.SubmissionField{
			SubmissionID: sub.ID,
			Name:         f.Name,
			Value:        f.Value,
		})
		if err != nil {
			return false, err
		}
	}
	return inserted, nil
}
