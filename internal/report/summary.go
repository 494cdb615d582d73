package report

import (
	"fmt"
	"strings"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// Summary groups a result into the naming, type and overall views.
type Summary struct {
	Grade          domain.Grade `json:"consistency"`
	IssueCount     int          `json:"issue_count"`
	NamingIssues   int          `json:"naming_issues"`
	PresenceIssues int          `json:"presence_issues"`
	TypeIssues     int          `json:"type_issues"`

	Headline    string   `json:"headline"`
	Naming      string   `json:"naming"`
	Types       string   `json:"types"`
	TypeDetails []string `json:"type_details,omitempty"`
	Overall     string   `json:"overall"`
	Explanation string   `json:"explanation,omitempty"`
}

// Explanation returns the one-line reading of a grade.
func Explanation(g domain.Grade) string {
	switch g {
	case domain.GradeHigh:
		return "Minor differences detected, but events are still mostly aligned."
	case domain.GradeMedium:
		return "Several differences detected; integration or analytics may behave differently."
	default:
		return "Substantial differences detected; these events likely do not represent a stable shared contract."
	}
}

// Summarize classifies issues by kind and builds the summary lines.
func Summarize(result domain.ComparisonResult) Summary {
	s := Summary{Grade: result.Grade, IssueCount: len(result.Issues)}
	for _, is := range result.Issues {
		switch {
		case is.Kind.Naming():
			s.NamingIssues++
		case is.Kind.Presence():
			s.PresenceIssues++
		case is.Kind == domain.IssueTypeMismatch:
			s.TypeIssues++
			s.TypeDetails = append(s.TypeDetails, is.Message())
		}
	}

	if s.IssueCount == 0 {
		s.Headline = "Events are highly consistent. No issues detected."
	} else {
		s.Headline = fmt.Sprintf("Consistency: %s · Issues: %d", s.Grade, s.IssueCount)
	}

	if s.NamingIssues == 0 && s.PresenceIssues == 0 {
		s.Naming = "No naming or field-presence mismatches detected."
	} else {
		var parts []string
		if s.NamingIssues > 0 {
			parts = append(parts, "Naming differences: "+countIssues(s.NamingIssues))
		}
		if s.PresenceIssues > 0 {
			parts = append(parts, "Fields only in one event: "+countIssues(s.PresenceIssues))
		}
		s.Naming = strings.Join(parts, "\n")
	}

	if s.TypeIssues == 0 {
		s.Types = "No type mismatches detected."
	} else {
		s.Types = "Type mismatches:\n" + strings.Join(s.TypeDetails, "\n")
	}

	if s.IssueCount == 0 {
		s.Overall = "Overall consistency: High. Events appear to describe the same concept."
	} else {
		s.Overall = fmt.Sprintf("Overall consistency: %s.", s.Grade)
		s.Explanation = Explanation(s.Grade)
	}
	return s
}

func countIssues(n int) string {
	if n == 1 {
		return "1 issue"
	}
	return fmt.Sprintf("%d issues", n)
}
