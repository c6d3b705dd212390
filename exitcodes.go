package main

import (
	"github.com/pkg/errors"

	"github.com/nonsonwune/boe_visualizer/gradebook"
	"github.com/nonsonwune/boe_visualizer/importer"
	"github.com/nonsonwune/boe_visualizer/sheet"
	"github.com/nonsonwune/boe_visualizer/store"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitNotFound   = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}

	var (
		validation  *importer.ValidationError
		empty       *importer.EmptyInputError
		unsupported *sheet.UnsupportedTypeError
		notFound    *gradebook.PaperNotFoundError
		storeErr    *store.StoreError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &empty), errors.As(err, &unsupported):
		return exitValidation
	case errors.As(err, &notFound):
		return exitNotFound
	case errors.As(err, &storeErr):
		return exitDB
	}
	return exitFailure
}
