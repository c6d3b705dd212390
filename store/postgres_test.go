package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/boe_visualizer/models"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgres_UpsertSubmissionReportsBranch(t *testing.T) {
	pg, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO submissions .* ON CONFLICT \(paper_id, student_id\) DO UPDATE`).
		WithArgs(int64(1), int64(2), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).AddRow(7, now, now, true))
	mock.ExpectQuery(`INSERT INTO submissions`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "inserted"}).AddRow(7, now, now, false))
	mock.ExpectCommit()

	err := pg.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		sub := models.Submission{PaperID: 1, StudentID: 2, Score: nullFloat(80), Percentage: nullFloat(80)}

		stored, inserted, err := tx.UpsertSubmission(ctx, sub)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, int64(7), stored.ID)
		assert.Equal(t, nullFloat(80), stored.Score)

		_, inserted, err = tx.UpsertSubmission(ctx, sub)
		require.NoError(t, err)
		assert.False(t, inserted)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithinTxRollsBackOnError(t *testing.T) {
	pg, mock := newMockStore(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO students`).
		WithArgs("S1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "first_name", "last_name", "email", "created_at", "updated_at"}).
			AddRow(3, "S1", "Ann", nil, nil, time.Now(), time.Now()))
	mock.ExpectRollback()

	err := pg.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		st, err := tx.UpsertStudent(ctx, models.Student{StudentID: "S1", FirstName: nullString("Ann")})
		require.NoError(t, err)
		assert.Equal(t, int64(3), st.ID)
		assert.False(t, st.LastName.Valid)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_WithinTxRollsBackOnPanic(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "boom", func() {
		_ = pg.WithinTx(context.Background(), func(context.Context, Tx) error {
			panic("boom")
		})
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DriverErrorsBecomeStoreErrors(t *testing.T) {
	pg, mock := newMockStore(t)
	driverErr := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO csv_uploads`).WillReturnError(driverErr)
	mock.ExpectRollback()

	err := pg.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.CreateUpload(ctx, models.CSVUpload{ID: uuid.New(), PaperID: 1, Filename: "a.csv"})
	})

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "create upload", se.Op)
	require.ErrorIs(t, err, driverErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FinalizeMissingUpload(t *testing.T) {
	pg, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE csv_uploads SET records_imported`).
		WithArgs(4, 1, id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := pg.WithinTx(context.Background(), func(ctx context.Context, tx Tx) error {
		return tx.FinalizeUpload(ctx, id, 4, 1)
	})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PaperByCode(t *testing.T) {
	pg, mock := newMockStore(t)
	cols := []string{"id", "paper_code", "paper_name", "semester", "year", "location", "created_at", "updated_at"}

	mock.ExpectQuery(`FROM papers WHERE paper_code = \$1`).
		WithArgs("COMPX123-22A (HAM)").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "COMPX123-22A (HAM)", "COMPX123", "A", 2022, "HAM", time.Now(), time.Now()))
	mock.ExpectQuery(`FROM papers WHERE paper_code = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(cols))

	p, err := pg.PaperByCode(context.Background(), "COMPX123-22A (HAM)")
	require.NoError(t, err)
	assert.Equal(t, "COMPX123", p.Name)
	assert.Equal(t, nullInt(2022), p.Year)
	assert.Equal(t, nullString("HAM"), p.Location)

	_, err = pg.PaperByCode(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PaperStatistics(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectQuery(`FROM submissions\s+WHERE paper_id = \$1`).
		WithArgs(int64(9), models.PassMark).
		WillReturnRows(sqlmock.NewRows([]string{"total_submissions", "graded_submissions", "average", "minimum", "maximum", "pass_rate"}).
			AddRow(4, 3, "71.67", "50.00", "90.00", "100.00"))
	mock.ExpectQuery(`GROUP BY grade`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"grade", "count"}).AddRow("A+", 1).AddRow("C-", 2))

	stats, err := pg.PaperStatistics(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSubmissions)
	assert.Equal(t, 3, stats.GradedSubmissions)
	assert.Equal(t, "71.67", stats.Average.Decimal.String())
	assert.True(t, stats.PassRate.Valid)
	assert.Equal(t, map[string]int{"A+": 1, "C-": 2}, stats.GradeDistribution)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_PaperSubmissionsAttachesFields(t *testing.T) {
	pg, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM submissions s\s+JOIN students st`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "paper_id", "student_id", "grade", "score", "max_score", "percentage", "created_at", "updated_at",
			"student.id", "student.student_id", "student.first_name", "student.last_name", "student.email",
			"student.created_at", "student.updated_at",
		}).
			AddRow(10, 1, 3, "B", 35.0, 50.0, 70.0, now, now, 3, "S1", "Ann", "Lee", nil, now, now).
			AddRow(11, 1, 4, nil, nil, nil, nil, now, now, 4, "S2", nil, nil, nil, now, now))
	mock.ExpectQuery(`FROM submission_fields f`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "submission_id", "field_name", "field_value"}).
			AddRow(1, 10, "Tutor", "Kim"))

	records, err := pg.PaperSubmissions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "S1", records[0].Student.StudentID)
	assert.Equal(t, nullFloat(70), records[0].Percentage)
	assert.Equal(t, map[string]string{"Tutor": "Kim"}, records[0].Fields)
	assert.Nil(t, records[1].Fields)
	assert.False(t, records[1].Grade.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}
