package main

import (
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/nonsonwune/boe_visualizer/importer"
	"github.com/nonsonwune/boe_visualizer/models"
)

var (
	heading = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
)

func displayImportSummary(w io.Writer, code string, s importer.ImportSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Upload ID", "Paper ID", "Imported", "Updated", "Total Processed"})
	table.Append([]string{
		s.UploadID.String(),
		strconv.FormatInt(s.PaperID, 10),
		strconv.Itoa(s.RecordsImported),
		strconv.Itoa(s.RecordsUpdated),
		strconv.Itoa(s.TotalProcessed),
	})
	table.Render()

	if s.DryRun {
		warning.Fprintf(w, "Dry run for %s: nothing was saved\n", code)
		return
	}
	success.Fprintf(w, "Import for %s completed successfully!\n", code)
}

func displayPapers(w io.Writer, papers []models.PaperSummary) {
	if len(papers) == 0 {
		warning.Fprintln(w, "No papers have been ingested yet")
		return
	}

	heading.Fprintln(w, "Papers")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Code", "Name", "Year", "Semester", "Location", "Submissions", "Average %"})
	for _, p := range papers {
		table.Append([]string{
			p.Code,
			p.Name,
			getInt64(p.Year),
			getString(p.Semester),
			getString(p.Location),
			strconv.Itoa(p.TotalSubmissions),
			getDecimal(p.AverageScore),
		})
	}
	table.Render()
}

func displayStatistics(w io.Writer, paper models.Paper, stats models.PaperStatistics) {
	heading.Fprintf(w, "Statistics for %s (%s)\n", paper.Code, paper.Name)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.AppendBulk([][]string{
		{"Submissions", strconv.Itoa(stats.TotalSubmissions)},
		{"Graded", strconv.Itoa(stats.GradedSubmissions)},
		{"Average %", getDecimal(stats.Average)},
		{"Minimum %", getDecimal(stats.Minimum)},
		{"Maximum %", getDecimal(stats.Maximum)},
		{fmt.Sprintf("Pass rate (>= %g%%)", models.PassMark), getDecimal(stats.PassRate)},
	})
	table.Render()

	if len(stats.GradeDistribution) == 0 {
		return
	}
	heading.Fprintln(w, "Grade Distribution")
	dist := tablewriter.NewWriter(w)
	dist.SetHeader([]string{"Grade", "Count"})
	for _, g := range gradeOrder(stats.GradeDistribution) {
		dist.Append([]string{g, strconv.Itoa(stats.GradeDistribution[g])})
	}
	dist.Render()
}

func displayHistory(w io.Writer, code string, uploads []models.CSVUpload) {
	heading.Fprintf(w, "Uploads for %s\n", code)
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Uploaded", "File", "Imported", "Updated", "Columns"})
	for _, u := range uploads {
		table.Append([]string{
			u.CreatedAt.Format("2006-01-02 15:04:05"),
			u.Filename,
			strconv.Itoa(u.RecordsImported),
			strconv.Itoa(u.RecordsUpdated),
			strconv.Itoa(len(u.OriginalHeaders)),
		})
	}
	table.Render()
}

// gradeOrder lists the letter grades present in dist from best to worst,
// followed by any other grade labels alphabetically.
func gradeOrder(dist map[string]int) []string {
	known := make(map[string]bool)
	var out []string
	for _, g := range importer.Grades() {
		known[g] = true
		if _, ok := dist[g]; ok {
			out = append(out, g)
		}
	}
	var other []string
	for g := range dist {
		if !known[g] {
			other = append(other, g)
		}
	}
	sort.Strings(other)
	return append(out, other...)
}

// Helper functions
func getString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return "N/A"
}

func getInt64(i sql.NullInt64) string {
	if i.Valid {
		return strconv.FormatInt(i.Int64, 10)
	}
	return "N/A"
}

func getDecimal(d decimal.NullDecimal) string {
	if d.Valid {
		return d.Decimal.StringFixed(2)
	}
	return "N/A"
}
