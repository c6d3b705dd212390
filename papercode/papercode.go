// Package papercode decodes paper codes such as "COMPX123-22A (HAM)" into
// their subject, year, semester and teaching location.
package papercode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// codePattern: <subject letters><number>-<yy><semester>[ (<location>)]
var codePattern = regexp.MustCompile(`^([A-Za-z]{2,6}\d{3,4}[A-Za-z]?)-(\d{2})([A-Za-z]{1,2})(?:\s*\(\s*([A-Za-z]+)\s*\))?$`)

// Parsed is the decoded form of a paper code.
type Parsed struct {
	Code     string
	Subject  string
	Year     int
	Semester string
	Location string
}

// CodeParseError reports a code that does not follow the paper code grammar.
type CodeParseError struct {
	Code string
}

func (e *CodeParseError) Error() string {
	return fmt.Sprintf("unrecognised paper code: %q", e.Code)
}

// Parse decodes code. Two-digit years are taken to be in the 2000s.
func Parse(code string) (Parsed, error) {
	clean := strings.TrimSpace(code)
	m := codePattern.FindStringSubmatch(clean)
	if m == nil {
		return Parsed{}, &CodeParseError{Code: code}
	}

	yy, err := strconv.Atoi(m[2])
	if err != nil {
		return Parsed{}, &CodeParseError{Code: code}
	}

	return Parsed{
		Code:     clean,
		Subject:  strings.ToUpper(m[1]),
		Year:     2000 + yy,
		Semester: strings.ToUpper(m[3]),
		Location: strings.ToUpper(m[4]),
	}, nil
}
