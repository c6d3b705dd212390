package models

import "github.com/shopspring/decimal"

// PassMark is the lowest percentage counted as a pass (the C- band).
const PassMark = 50.0

// PaperStatistics holds the aggregates shown for a single paper.
// Average, Minimum and Maximum are percentages rounded to two places;
// PassRate is the share of graded submissions at or above PassMark.
type PaperStatistics struct {
	TotalSubmissions  int                 `db:"total_submissions" json:"total_submissions"`
	GradedSubmissions int                 `db:"graded_submissions" json:"graded_submissions"`
	Average           decimal.NullDecimal `db:"average" json:"average"`
	Minimum           decimal.NullDecimal `db:"minimum" json:"minimum"`
	Maximum           decimal.NullDecimal `db:"maximum" json:"maximum"`
	PassRate          decimal.NullDecimal `db:"pass_rate" json:"pass_rate"`
	GradeDistribution map[string]int      `db:"-" json:"grade_distribution"`
}
