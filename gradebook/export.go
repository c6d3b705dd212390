package gradebook

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

var exportHeaders = []string{"Student ID", "First Name", "Last Name", "Email", "Grade", "Paper Total", "Max Score"}

func (s *Service) export(ctx context.Context, paperID int64) (string, error) {
	records, err := s.store.PaperSubmissions(ctx, paperID)
	if err != nil {
		return "", err
	}

	seen := make(map[string]struct{})
	var extra []string
	for _, r := range records {
		for name := range r.Fields {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				extra = append(extra, name)
			}
		}
	}
	sort.Strings(extra)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append(append([]string(nil), exportHeaders...), extra...)); err != nil {
		return "", errors.Wrap(err, "write export header")
	}

	for _, r := range records {
		line := []string{
			r.Student.StudentID,
			str(r.Student.FirstName),
			str(r.Student.LastName),
			str(r.Student.Email),
			str(r.Grade),
			num(r.Score),
			num(r.MaxScore),
		}
		for _, name := range extra {
			line = append(line, r.Fields[name])
		}
		if err := w.Write(line); err != nil {
			return "", errors.Wrap(err, "write export row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", errors.Wrap(err, "flush export")
	}
	return buf.String(), nil
}

func str(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func num(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
