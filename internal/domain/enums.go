package domain

import "fmt"

// Kind is the coarse type category of a JSON value.
type Kind string

const (
	KindNull      Kind = "null"
	KindBoolean   Kind = "boolean"
	KindNumber    Kind = "number"
	KindString    Kind = "string"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindUndefined Kind = "undefined"
)

func (k Kind) Valid() bool {
	switch k {
	case KindNull, KindBoolean, KindNumber, KindString, KindObject, KindArray, KindUndefined:
		return true
	}
	return false
}

// IssueKind classifies a single discrepancy between two events.
type IssueKind string

const (
	IssueNameAlias    IssueKind = "name_alias"
	IssueTypeMismatch IssueKind = "type_mismatch"
	IssueOnlyInA      IssueKind = "only_in_a"
	IssueOnlyInB      IssueKind = "only_in_b"
)

func (k IssueKind) Valid() bool {
	switch k {
	case IssueNameAlias, IssueTypeMismatch, IssueOnlyInA, IssueOnlyInB:
		return true
	}
	return false
}

// Naming reports whether the issue is about field naming.
func (k IssueKind) Naming() bool { return k == IssueNameAlias }

// Presence reports whether the issue is about a field present on one side only.
func (k IssueKind) Presence() bool { return k == IssueOnlyInA || k == IssueOnlyInB }

// Grade is the coarse consistency classification derived from the issue count.
type Grade string

const (
	GradeHigh   Grade = "High"
	GradeMedium Grade = "Medium"
	GradeLow    Grade = "Low"
)

func (g Grade) Valid() bool {
	switch g {
	case GradeHigh, GradeMedium, GradeLow:
		return true
	}
	return false
}

// Grade thresholds. Fixed; not configurable.
const (
	MaxMediumIssues = 2
)

// GradeFor maps an issue count to a Grade: 0 is High, 1-2 is Medium, more is Low.
func GradeFor(issues int) Grade {
	switch {
	case issues <= 0:
		return GradeHigh
	case issues <= MaxMediumIssues:
		return GradeMedium
	default:
		return GradeLow
	}
}

// ParseGrade converts a string to a Grade.
func ParseGrade(s string) (Grade, error) {
	g := Grade(s)
	if !g.Valid() {
		return "", fmt.Errorf("unknown grade: %q", s)
	}
	return g, nil
}
