package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nonsonwune/boe_visualizer/config"
	"github.com/nonsonwune/boe_visualizer/gradebook"
	"github.com/nonsonwune/boe_visualizer/importer"
	"github.com/nonsonwune/boe_visualizer/migrations"
	"github.com/nonsonwune/boe_visualizer/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app holds what every command needs. Tests swap the openers for an
// in-memory store.
type app struct {
	stderr   io.Writer
	envFiles []string

	cfg    *config.Config
	logger *logrus.Logger

	openStore func(ctx context.Context, a *app) (store.Store, func(), error)
	migrate   func(ctx context.Context, a *app) (int64, error)
}

func newApp(stderr io.Writer) *app {
	return &app{
		stderr:    stderr,
		envFiles:  config.DefaultEnvFiles,
		openStore: openPostgres,
		migrate:   migratePostgres,
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return execute(ctx, newApp(stderr), args, stdout, stderr)
}

func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	failure.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "boe_visualizer",
		Short:         "Ingest grade sheets and report on papers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	root.AddCommand(
		newMigrateCmd(a),
		newIngestCmd(a),
		newUpdateCmd(a),
		newPapersCmd(a),
		newStatsCmd(a),
		newHistoryCmd(a),
		newExportCmd(a),
	)
	return root
}

func (a *app) setup() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.envFiles)
	if err != nil {
		return withCode(exitUsage, err)
	}
	a.cfg = cfg
	a.logger = cfg.Logger(a.stderr)
	return nil
}

// service opens the store and builds the gradebook on top of it. The
// returned func releases the store.
func (a *app) service(ctx context.Context) (*gradebook.Service, *importer.Importer, func(), error) {
	s, closeFn, err := a.openStore(ctx, a)
	if err != nil {
		return nil, nil, nil, err
	}
	im := importer.NewImporter(s, a.logger)
	return gradebook.NewService(s, im), im, closeFn, nil
}

func connect(ctx context.Context, a *app) (*sqlx.DB, error) {
	opts := a.cfg.Database
	a.logger.WithFields(logrus.Fields{
		"host":     opts.Host,
		"database": opts.Name,
	}).Debug("connecting to database")

	db, err := store.Connect(ctx, opts.DSN(), opts.MaxOpenConns, opts.ConnectRetries)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return db, nil
}

func openPostgres(ctx context.Context, a *app) (store.Store, func(), error) {
	db, err := connect(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			a.logger.WithError(err).Warn("closing database")
		}
	}
	if err := migrations.VerifySchema(ctx, db.DB); err != nil {
		closeFn()
		return nil, nil, withCode(exitDB, errors.Wrap(err, "schema is not ready, run migrate first"))
	}
	return store.NewPostgres(db), closeFn, nil
}

func migratePostgres(ctx context.Context, a *app) (int64, error) {
	db, err := connect(ctx, a)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := migrations.Up(ctx, db.DB, a.logger); err != nil {
		return 0, withCode(exitDB, err)
	}
	v, err := migrations.Version(ctx, db.DB)
	if err != nil {
		return 0, withCode(exitDB, err)
	}
	return v, nil
}

func requireFlags(cmd *cobra.Command, names ...string) error {
	for _, name := range names {
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return withCode(exitUsage, err)
		}
		if v == "" {
			return withCode(exitUsage, fmt.Errorf("required flag --%s not set", name))
		}
	}
	return nil
}
