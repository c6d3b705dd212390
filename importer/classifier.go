package importer

import (
	"regexp"
	"strings"
)

// Role is a canonical grade sheet column.
type Role int

const (
	RoleStudentID Role = iota
	RoleFirstName
	RoleLastName
	RoleEmail
	RoleGrade
	RoleScore
	RoleMaxScore
	numRoles
)

var roleNames = [numRoles]string{
	RoleStudentID: "student_id",
	RoleFirstName: "first_name",
	RoleLastName:  "last_name",
	RoleEmail:     "email",
	RoleGrade:     "grade",
	RoleScore:     "score",
	RoleMaxScore:  "max_score",
}

func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return "unknown"
	}
	return roleNames[r]
}

// Roles lists every canonical role in column order.
func Roles() []Role {
	roles := make([]Role, numRoles)
	for i := range roles {
		roles[i] = Role(i)
	}
	return roles
}

// Mapping assigns each role at most one column index.
type Mapping struct {
	index [numRoles]int
}

func newMapping() Mapping {
	var m Mapping
	for i := range m.index {
		m.index[i] = -1
	}
	return m
}

// Index returns the column claimed by role.
func (m Mapping) Index(role Role) (int, bool) {
	i := m.index[role]
	return i, i >= 0
}

func (m Mapping) mapped(role Role) bool {
	return m.index[role] >= 0
}

// Claimed reports whether column belongs to any role.
func (m Mapping) Claimed(column int) bool {
	for _, i := range m.index {
		if i == column {
			return true
		}
	}
	return false
}

// sep matches the optional separator between words in a header.
const sep = `[\s._-]?`

type rule struct {
	role    Role
	pattern *regexp.Regexp
	// guard, when set, must hold for the rule to apply.
	guard func(Mapping) bool
	// overrides lets the rule take a role already claimed by a rule
	// without overrides.
	overrides bool
}

// rules are tried in order against each lower-cased, trimmed header; the
// first rule whose pattern and guard match decides the header.
var rules = []rule{
	{
		role:    RoleStudentID,
		pattern: regexp.MustCompile(`student` + sep + `id|^id$|student` + sep + `number|studentno|id` + sep + `number|student` + sep + `no\b`),
	},
	{
		role:    RoleFirstName,
		pattern: regexp.MustCompile(`first` + sep + `name|fname|given` + sep + `name`),
	},
	{
		role:    RoleLastName,
		pattern: regexp.MustCompile(`last` + sep + `name|lname|surname|family` + sep + `name`),
	},
	{
		role:    RoleFirstName,
		pattern: regexp.MustCompile(`^(name|full` + sep + `name)$`),
		guard: func(m Mapping) bool {
			return !m.mapped(RoleFirstName) && !m.mapped(RoleLastName)
		},
	},
	{
		role:    RoleEmail,
		pattern: regexp.MustCompile(`e` + sep + `mail|mail`),
	},
	{
		role:    RoleGrade,
		pattern: regexp.MustCompile(`grade`),
	},
	{
		role:      RoleScore,
		pattern:   regexp.MustCompile(`paper` + sep + `total`),
		overrides: true,
	},
	{
		role:    RoleScore,
		pattern: regexp.MustCompile(`^(scores?|points?|marks?|totals?|percentages?|results?)$`),
		guard: func(m Mapping) bool {
			return !m.mapped(RoleScore)
		},
	},
	{
		role:    RoleMaxScore,
		pattern: regexp.MustCompile(`max` + sep + `(score|points?|marks?)|maximum`),
	},
}

// Classify maps headers onto canonical roles. The result depends only on
// headers; headers matching no rule, or losing their role to an earlier
// column, are left unclaimed.
func Classify(headers []string) Mapping {
	m := newMapping()
	var claimedBy [numRoles]*rule

	for col, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}
		for i := range rules {
			r := &rules[i]
			if !r.pattern.MatchString(h) {
				continue
			}
			if r.guard != nil && !r.guard(m) {
				continue
			}
			if prev := claimedBy[r.role]; prev == nil || (r.overrides && !prev.overrides) {
				m.index[r.role] = col
				claimedBy[r.role] = r
			}
			break
		}
	}
	return m
}
