package uischema

import (
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
	"github.com/finops-claw-gang/eventcheck-go/internal/report"
)

const schemaVersion = "v1"

func defaultActions() []Action {
	return []Action{
		{Type: ActionCheck, Label: "Check Consistency"},
		{Type: ActionLoadExample, Label: "Load Example"},
	}
}

// Idle returns the schema shown before any comparison has run.
func Idle() UISchema {
	return UISchema{
		Version: schemaVersion,
		Status:  StatusIdle,
		Components: []Component{
			badge(ToneIdle, "No comparison run yet."),
			card(ComponentNamingCard, "Naming & Field Coverage", 10,
				"Field naming differences and fields present in only one event will appear here."),
			card(ComponentTypesCard, "Type Alignment", 20,
				"Type mismatches (e.g., number vs string) will be listed here."),
			card(ComponentOverallCard, "Overall Consistency", 30,
				"The checker will summarize how closely these two events align."),
			rawReport(`Click "Check Consistency" to see issues and a simple consistency summary.`),
		},
		Actions: defaultActions(),
	}
}

// Build constructs the schema for a completed comparison.
func Build(result domain.ComparisonResult) UISchema {
	s := report.Summarize(result)

	tone := ToneFail
	if result.Consistent() {
		tone = ToneOK
	}
	head := badge(tone, s.Headline)
	head.Data["consistency"] = string(s.Grade)
	head.Data["issue_count"] = s.IssueCount

	naming := card(ComponentNamingCard, "Naming & Field Coverage", 10, s.Naming)
	naming.Data["naming_issues"] = s.NamingIssues
	naming.Data["presence_issues"] = s.PresenceIssues

	types := card(ComponentTypesCard, "Type Alignment", 20, s.Types)
	if len(s.TypeDetails) > 0 {
		types.Data["mismatches"] = s.TypeDetails
	}

	overall := card(ComponentOverallCard, "Overall Consistency", 30, s.Overall)
	if s.Explanation != "" {
		overall.Data["explanation"] = s.Explanation
	}

	return UISchema{
		Version:    schemaVersion,
		Status:     StatusCompared,
		Components: []Component{head, naming, types, overall, rawReport(report.Text(result))},
		Actions:    defaultActions(),
	}
}

// BuildParseError constructs the schema shown when either event is malformed.
func BuildParseError(err *eventjson.MalformedInputError) UISchema {
	head := badge(ToneFail, "Cannot compare: invalid JSON in one or both events.")
	sides := make([]string, 0, 2)
	for _, s := range err.Sides() {
		sides = append(sides, string(s))
	}
	head.Data["invalid_sides"] = sides

	return UISchema{
		Version: schemaVersion,
		Status:  StatusParseError,
		Components: []Component{
			head,
			card(ComponentNamingCard, "Naming & Field Coverage", 10,
				"Fix JSON parsing errors before checking naming or field coverage."),
			card(ComponentTypesCard, "Type Alignment", 20,
				"Fix JSON parsing errors before checking types."),
			card(ComponentOverallCard, "Overall Consistency", 30,
				"Awaiting valid events to compute consistency."),
			rawReport(report.ParseErrorText(err)),
		},
		Actions: defaultActions(),
	}
}
