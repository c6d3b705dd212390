package importer

import (
	"fmt"
	"sort"
	"strings"
)

// EmptyInputError is returned when a grade sheet has no non-blank records.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	if e.Source == "" {
		return "grade sheet has no rows"
	}
	return fmt.Sprintf("grade sheet %q has no rows", e.Source)
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports a request that cannot be ingested as given.
// Fields is nil when the problem is not tied to a single field, such as
// malformed CSV.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	sort.Strings(parts)
	msg := e.Message
	if msg == "" {
		msg = "invalid ingestion request"
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}
