package importer

var gradeBands = []struct {
	min   float64
	grade string
}{
	{90, "A+"},
	{85, "A"},
	{80, "A-"},
	{75, "B+"},
	{70, "B"},
	{65, "B-"},
	{60, "C+"},
	{55, "C"},
	{50, "C-"},
	{45, "D+"},
	{40, "D"},
	{35, "D-"},
}

// LetterGrade returns the letter grade for a percentage. A percentage on a
// band boundary gets the higher band.
func LetterGrade(percentage float64) string {
	for _, b := range gradeBands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return "F"
}

// Grades lists every letter grade from highest to lowest.
func Grades() []string {
	out := make([]string, 0, len(gradeBands)+1)
	for _, b := range gradeBands {
		out = append(out, b.grade)
	}
	return append(out, "F")
}
