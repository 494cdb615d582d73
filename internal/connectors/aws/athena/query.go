package athena

import (
	"fmt"
	"regexp"
)

var (
	eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_:.-]{1,128}$`)
	columnPattern  = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	tablePattern   = regexp.MustCompile(`^[a-zA-Z0-9_.]+$`)
)

// buildEventQuery constructs a SQL query selecting one event payload with validated inputs.
// Returns an error if any input fails validation (preventing SQL injection).
func buildEventQuery(table, idColumn, payloadColumn, eventID string) (string, error) {
	if !eventIDPattern.MatchString(eventID) {
		return "", fmt.Errorf("athena query: invalid event ID %q (letters, digits, _ : . - only)", eventID)
	}
	if !tablePattern.MatchString(table) {
		return "", fmt.Errorf("athena query: invalid table name %q (must be alphanumeric, dots, underscores)", table)
	}
	if !columnPattern.MatchString(idColumn) {
		return "", fmt.Errorf("athena query: invalid id column %q", idColumn)
	}
	if !columnPattern.MatchString(payloadColumn) {
		return "", fmt.Errorf("athena query: invalid payload column %q", payloadColumn)
	}

	query := fmt.Sprintf(
		`SELECT %s
FROM %s
WHERE %s = '%s'
LIMIT 1`,
		payloadColumn, table, idColumn, eventID,
	)
	return query, nil
}
