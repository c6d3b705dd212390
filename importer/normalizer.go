package importer

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
)

// Row is a grade sheet record reduced to canonical values. Absent values
// have Valid == false.
type Row struct {
	StudentID  string
	FirstName  sql.NullString
	LastName   sql.NullString
	Email      sql.NullString
	Grade      sql.NullString
	Score      sql.NullFloat64
	MaxScore   sql.NullFloat64
	Percentage sql.NullFloat64
	// Fields holds values of unclaimed columns, keyed by trimmed header.
	Fields []Field
}

// Field is an unclaimed column value kept alongside a submission.
type Field struct {
	Name  string
	Value string
}

// Normalize reduces record to a Row using m. ok is false when the record
// has no student id and must be skipped.
func Normalize(headers, record []string, m Mapping) (row Row, ok bool) {
	cell := func(col int) sql.NullString {
		if col < 0 || col >= len(record) {
			return sql.NullString{}
		}
		v := strings.TrimSpace(record[col])
		return sql.NullString{String: v, Valid: v != ""}
	}
	roleCell := func(role Role) sql.NullString {
		col, _ := m.Index(role)
		return cell(col)
	}

	id := roleCell(RoleStudentID)
	if !id.Valid {
		return Row{}, false
	}

	row = Row{
		StudentID: id.String,
		FirstName: roleCell(RoleFirstName),
		LastName:  roleCell(RoleLastName),
		Email:     roleCell(RoleEmail),
		Grade:     roleCell(RoleGrade),
		Score:     parseScore(roleCell(RoleScore)),
		MaxScore:  parseScore(roleCell(RoleMaxScore)),
	}
	row.Percentage = percentage(row.Score, row.MaxScore)
	if !row.Grade.Valid && row.Percentage.Valid {
		row.Grade = sql.NullString{String: LetterGrade(row.Percentage.Float64), Valid: true}
	}

	for col, header := range headers {
		name := strings.TrimSpace(header)
		if name == "" || m.Claimed(col) {
			continue
		}
		if v := cell(col); v.Valid {
			row.Fields = append(row.Fields, Field{Name: name, Value: v.String})
		}
	}
	return row, true
}

// parseScore reads a numeric cell. Unparseable, non-finite and zero values
// are all treated as absent; a trailing percent sign is allowed.
func parseScore(v sql.NullString) sql.NullFloat64 {
	if !v.Valid {
		return sql.NullFloat64{}
	}
	s := strings.TrimSpace(strings.TrimSuffix(v.String, "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

// percentage derives a percentage from score and maxScore. A lone score is
// taken to already be a percentage; a negative maxScore yields none.
func percentage(score, maxScore sql.NullFloat64) sql.NullFloat64 {
	switch {
	case !score.Valid:
		return sql.NullFloat64{}
	case !maxScore.Valid:
		return score
	case maxScore.Float64 > 0:
		return sql.NullFloat64{Float64: (score.Float64 / maxScore.Float64) * 100, Valid: true}
	default:
		return sql.NullFloat64{}
	}
}
