package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/nonsonwune/boe_visualizer/models"
)

const paperColumns = `id, paper_code, paper_name, semester, year, location, created_at, updated_at`

// executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Postgres is the Store backed by PostgreSQL through lib/pq.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Connect opens a lib/pq pool for dsn and waits for the server to answer,
// sleeping 100ms longer after each failed ping.
func Connect(ctx context.Context, dsn string, maxOpenConns, attempts int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, wrap("open", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	if attempts < 1 {
		attempts = 1
	}

	for i := 1; i <= attempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			return db, nil
		}
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, wrap("ping", ctx.Err())
		case <-time.After(time.Duration(i) * 100 * time.Millisecond):
		}
	}
	_ = db.Close()
	return nil, wrap("ping", errors.Wrapf(err, "database not ready after %d attempts", attempts))
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return wrap("begin", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
			return errors.Wrapf(err, "rollback failed: %v", rErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

func (p *Postgres) PaperByCode(ctx context.Context, code string) (models.Paper, error) {
	return paperByCode(ctx, p.db, code)
}

func (p *Postgres) ListPapers(ctx context.Context) ([]models.PaperSummary, error) {
	query := `
		SELECT ` + paperColumns + `, total_submissions, average_score
		FROM paper_summary
		ORDER BY year DESC NULLS LAST, semester DESC NULLS LAST, paper_code`

	papers := make([]models.PaperSummary, 0)
	if err := p.db.SelectContext(ctx, &papers, query); err != nil {
		return nil, wrap("list papers", err)
	}
	return papers, nil
}

func (p *Postgres) PaperStatistics(ctx context.Context, paperID int64) (models.PaperStatistics, error) {
	query := `
		SELECT
			COUNT(*)::int AS total_submissions,
			COUNT(percentage)::int AS graded_submissions,
			ROUND(AVG(percentage)::numeric, 2) AS average,
			ROUND(MIN(percentage)::numeric, 2) AS minimum,
			ROUND(MAX(percentage)::numeric, 2) AS maximum,
			ROUND((100.0 * COUNT(*) FILTER (WHERE percentage >= $2)
				/ NULLIF(COUNT(percentage), 0))::numeric, 2) AS pass_rate
		FROM submissions
		WHERE paper_id = $1`

	var stats models.PaperStatistics
	if err := p.db.GetContext(ctx, &stats, query, paperID, models.PassMark); err != nil {
		return models.PaperStatistics{}, wrap("paper statistics", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT grade, COUNT(*)
		FROM submissions
		WHERE paper_id = $1 AND grade IS NOT NULL
		GROUP BY grade`, paperID)
	if err != nil {
		return models.PaperStatistics{}, wrap("grade distribution", err)
	}
	defer rows.Close()

	stats.GradeDistribution = make(map[string]int)
	for rows.Next() {
		var grade string
		var count int
		if err := rows.Scan(&grade, &count); err != nil {
			return models.PaperStatistics{}, wrap("grade distribution", err)
		}
		stats.GradeDistribution[grade] = count
	}
	if err := rows.Err(); err != nil {
		return models.PaperStatistics{}, wrap("grade distribution", err)
	}
	return stats, nil
}

func (p *Postgres) PaperSubmissions(ctx context.Context, paperID int64) ([]models.SubmissionRecord, error) {
	query := `
		SELECT
			s.id, s.paper_id, s.student_id, s.grade, s.score, s.max_score, s.percentage,
			s.created_at, s.updated_at,
			st.id AS "student.id",
			st.student_id AS "student.student_id",
			st.first_name AS "student.first_name",
			st.last_name AS "student.last_name",
			st.email AS "student.email",
			st.created_at AS "student.created_at",
			st.updated_at AS "student.updated_at"
		FROM submissions s
		JOIN students st ON st.id = s.student_id
		WHERE s.paper_id = $1
		ORDER BY st.student_id`

	records := make([]models.SubmissionRecord, 0)
	if err := p.db.SelectContext(ctx, &records, query, paperID); err != nil {
		return nil, wrap("paper submissions", err)
	}

	var fields []models.SubmissionField
	err := p.db.SelectContext(ctx, &fields, `
		SELECT f.id, f.submission_id, f.field_name, f.field_value
		FROM submission_fields f
		JOIN submissions s ON s.id = f.submission_id
		WHERE s.paper_id = $1
		ORDER BY f.id`, paperID)
	if err != nil {
		return nil, wrap("submission fields", err)
	}

	index := make(map[int64]int, len(records))
	for i := range records {
		index[records[i].ID] = i
	}
	for _, f := range fields {
		i, ok := index[f.SubmissionID]
		if !ok {
			continue
		}
		if records[i].Fields == nil {
			records[i].Fields = make(map[string]string)
		}
		records[i].Fields[f.Name] = f.Value
	}
	return records, nil
}

func (p *Postgres) PaperUploads(ctx context.Context, paperID int64) ([]models.CSVUpload, error) {
	uploads := make([]models.CSVUpload, 0)
	err := p.db.SelectContext(ctx, &uploads, `
		SELECT id, paper_id, filename, original_headers, records_imported, records_updated, created_at
		FROM csv_uploads
		WHERE paper_id = $1
		ORDER BY created_at DESC`, paperID)
	if err != nil {
		return nil, wrap("paper uploads", err)
	}
	return uploads, nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) PaperByCode(ctx context.Context, code string) (models.Paper, error) {
	return paperByCode(ctx, t.tx, code)
}

func (t *pgTx) CreatePaper(ctx context.Context, p models.Paper) (models.Paper, error) {
	// The no-op update makes RETURNING yield the existing row when another
	// ingestion created the same code first.
	query := `
		INSERT INTO papers (paper_code, paper_name, semester, year, location)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (paper_code) DO UPDATE SET paper_code = EXCLUDED.paper_code
		RETURNING ` + paperColumns

	var stored models.Paper
	if err := t.tx.GetContext(ctx, &stored, query, p.Code, p.Name, p.Semester, p.Year, p.Location); err != nil {
		return models.Paper{}, wrap("create paper", err)
	}
	return stored, nil
}

func (t *pgTx) UpsertStudent(ctx context.Context, s models.Student) (models.Student, error) {
	query := `
		INSERT INTO students (student_id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			first_name = COALESCE(EXCLUDED.first_name, students.first_name),
			last_name = COALESCE(EXCLUDED.last_name, students.last_name),
			email = COALESCE(EXCLUDED.email, students.email),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, student_id, first_name, last_name, email, created_at, updated_at`

	var stored models.Student
	if err := t.tx.GetContext(ctx, &stored, query, s.StudentID, s.FirstName, s.LastName, s.Email); err != nil {
		return models.Student{}, wrap("upsert student", err)
	}
	return stored, nil
}

func (t *pgTx) UpsertSubmission(ctx context.Context, s models.Submission) (models.Submission, bool, error) {
	// xmax is zero only on a freshly inserted row version.
	query := `
		INSERT INTO submissions (paper_id, student_id, grade, score, max_score, percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (paper_id, student_id) DO UPDATE SET
			grade = EXCLUDED.grade,
			score = EXCLUDED.score,
			max_score = EXCLUDED.max_score,
			percentage = EXCLUDED.percentage,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	var row struct {
		ID        int64     `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		Inserted  bool      `db:"inserted"`
	}
	err := t.tx.GetContext(ctx, &row, query, s.PaperID, s.StudentID, s.Grade, s.Score, s.MaxScore, s.Percentage)
	if err != nil {
		return models.Submission{}, false, wrap("upsert submission", err)
	}

	s.ID = row.ID
	s.CreatedAt = row.CreatedAt
	s.UpdatedAt = row.UpdatedAt
	return s, row.Inserted, nil
}

func (t *pgTx) UpsertSubmissionField(ctx context.Context, f models.SubmissionField) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO submission_fields (submission_id, field_name, field_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (submission_id, field_name) DO UPDATE SET field_value = EXCLUDED.field_value`,
		f.SubmissionID, f.Name, f.Value)
	return wrap("upsert submission field", err)
}

func (t *pgTx) CreateUpload(ctx context.Context, u models.CSVUpload) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO csv_uploads (id, paper_id, filename, original_headers, records_imported, records_updated)
		VALUES ($1, $2, $3, $4, 0, 0)`,
		u.ID, u.PaperID, u.Filename, u.OriginalHeaders)
	return wrap("create upload", err)
}

func (t *pgTx) FinalizeUpload(ctx context.Context, id uuid.UUID, imported, updated int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE csv_uploads SET records_imported = $1, records_updated = $2
		WHERE id = $3`, imported, updated, id)
	if err != nil {
		return wrap("finalize upload", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("finalize upload", err)
	}
	if n != 1 {
		return wrap("finalize upload", errors.Wrapf(ErrNotFound, "upload %s", id))
	}
	return nil
}

func paperByCode(ctx context.Context, db executor, code string) (models.Paper, error) {
	var p models.Paper
	err := db.GetContext(ctx, &p, `SELECT `+paperColumns+` FROM papers WHERE paper_code = $1`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Paper{}, ErrNotFound
	}
	if err != nil {
		return models.Paper{}, wrap("paper by code", err)
	}
	return p, nil
}
