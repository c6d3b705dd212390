package importer

import (
	"database/sql"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sheetHeaders = []string{"Student ID", "First Name", "Email", "Grade", "Score", "Max Score", "Attendance", "", "Comments"}

func TestNormalize_ZeroScoreIsMissing(t *testing.T) {
	headers := []string{"student_id", "score", "max_score"}
	row, ok := Normalize(headers, []string{"1", "0", "100"}, Classify(headers))
	require.True(t, ok)
	assert.False(t, row.Score.Valid)
	assert.Equal(t, sql.NullFloat64{Float64: 100, Valid: true}, row.MaxScore)
	assert.False(t, row.Percentage.Valid)
	assert.False(t, row.Grade.Valid)
}

func TestNormalize_SkipsRowWithoutStudentID(t *testing.T) {
	m := Classify(sheetHeaders)
	for _, record := range [][]string{
		{"", "Ann", "", "A"},
		{"   ", "Ann"},
		{},
	} {
		_, ok := Normalize(sheetHeaders, record, m)
		assert.False(t, ok, "%q", record)
	}
}

func TestNormalize_Percentage(t *testing.T) {
	m := Classify(sheetHeaders)
	tests := []struct {
		name      string
		score     string
		max       string
		wantPct   sql.NullFloat64
		wantGrade sql.NullString
	}{
		{"score over max", "35", "50", sql.NullFloat64{Float64: 70, Valid: true}, sql.NullString{String: "B", Valid: true}},
		{"score alone is a percentage", "91.5", "", sql.NullFloat64{Float64: 91.5, Valid: true}, sql.NullString{String: "A+", Valid: true}},
		{"percent sign allowed", "85%", "", sql.NullFloat64{Float64: 85, Valid: true}, sql.NullString{String: "A", Valid: true}},
		{"zero max ignored", "42", "0", sql.NullFloat64{Float64: 42, Valid: true}, sql.NullString{String: "D", Valid: true}},
		{"negative max gives no percentage", "50", "-10", sql.NullFloat64{}, sql.NullString{}},
		{"unparseable score", "absent", "100", sql.NullFloat64{}, sql.NullString{}},
		{"non-finite score", "Inf", "100", sql.NullFloat64{}, sql.NullString{}},
		{"no score", "", "100", sql.NullFloat64{}, sql.NullString{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, ok := Normalize(sheetHeaders, []string{"S1", "", "", "", tt.score, tt.max}, m)
			require.True(t, ok)
			assert.Equal(t, tt.wantPct, row.Percentage)
			assert.Equal(t, tt.wantGrade, row.Grade)
		})
	}
}

func TestNormalize_PercentageBandBoundaries(t *testing.T) {
	m := Classify(sheetHeaders)
	for score, want := range map[string]string{"2.55": "A", "1.65": "C-"} {
		row, ok := Normalize(sheetHeaders, []string{"S1", "", "", "", score, "3"}, m)
		require.True(t, ok)
		s, _ := strconv.ParseFloat(score, 64)
		assert.Equal(t, (s/3)*100, row.Percentage.Float64, score)
		assert.Equal(t, want, row.Grade.String, score)
	}
}

func TestNormalize_SuppliedGradeIsKept(t *testing.T) {
	row, ok := Normalize(sheetHeaders, []string{"S1", "", "", " Merit ", "20", "100"}, Classify(sheetHeaders))
	require.True(t, ok)
	assert.Equal(t, sql.NullString{String: "Merit", Valid: true}, row.Grade)
	assert.Equal(t, sql.NullFloat64{Float64: 20, Valid: true}, row.Percentage)
}

func TestNormalize_TrimsAndPads(t *testing.T) {
	row, ok := Normalize(sheetHeaders, []string{"  S7 ", " Ann ", "   "}, Classify(sheetHeaders))
	require.True(t, ok)
	assert.Equal(t, "S7", row.StudentID)
	assert.Equal(t, sql.NullString{String: "Ann", Valid: true}, row.FirstName)
	assert.False(t, row.Email.Valid)
	assert.False(t, row.LastName.Valid)
	assert.Empty(t, row.Fields)
}

func TestNormalize_OverflowFields(t *testing.T) {
	record := []string{"S1", "Ann", "ann@example.com", "A", "90", "100", " 12 ", "orphan", "", "beyond headers"}
	row, ok := Normalize(sheetHeaders, record, Classify(sheetHeaders))
	require.True(t, ok)
	assert.Equal(t, []Field{{Name: "Attendance", Value: "12"}}, row.Fields)
}
