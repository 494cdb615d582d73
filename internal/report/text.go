// Package report renders comparison results and parse failures as text.
package report

import (
	"strconv"
	"strings"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
)

// Text renders the plain-text report:
//
//	Inconsistencies Detected:
//	- <issue>
//	...
//
//	Consistency: <grade>
//	Issues: <count>
//
// With no issues the header and list are replaced by "No inconsistencies detected.".
func Text(result domain.ComparisonResult) string {
	lines := make([]string, 0, len(result.Issues)+4)

	if len(result.Issues) == 0 {
		lines = append(lines, "No inconsistencies detected.")
	} else {
		lines = append(lines, "Inconsistencies Detected:")
		for _, is := range result.Issues {
			lines = append(lines, "- "+is.Message())
		}
	}

	lines = append(lines,
		"",
		"Consistency: "+string(result.Grade),
		"Issues: "+strconv.Itoa(len(result.Issues)),
	)
	return strings.Join(lines, "\n")
}

// ParseErrorText renders a malformed input diagnostic naming each failing side.
func ParseErrorText(err *eventjson.MalformedInputError) string {
	var b strings.Builder
	b.WriteString("Error parsing JSON:")
	for _, s := range err.Sides() {
		b.WriteString("\n- Event ")
		b.WriteString(string(s))
		b.WriteString(": ")
		b.WriteString(err.For(s).Error())
	}
	return b.String()
}
