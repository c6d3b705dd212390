// Package migrations owns the database schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var FS embed.FS

const dir = "sql"

// Tables are the tables the stores read and write.
var Tables = []string{"papers", "students", "submissions", "submission_fields", "csv_uploads"}

// Up applies every pending migration.
func Up(ctx context.Context, db *sql.DB, logger *logrus.Logger) error {
	goose.SetBaseFS(FS)
	if logger != nil {
		goose.SetLogger(logger)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "set migration dialect")
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// Version reports the schema version currently applied.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, errors.Wrap(err, "set migration dialect")
	}
	v, err := goose.GetDBVersionContext(ctx, db)
	return v, errors.Wrap(err, "read schema version")
}

// VerifySchema checks that every table in Tables exists.
func VerifySchema(ctx context.Context, db *sql.DB) error {
	query := `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)`

	for _, table := range Tables {
		var exists bool
		if err := db.QueryRowContext(ctx, query, table).Scan(&exists); err != nil {
			return errors.Wrapf(err, "check table %s", table)
		}
		if !exists {
			return errors.Errorf("required table %s does not exist; run migrate", table)
		}
	}
	return nil
}
