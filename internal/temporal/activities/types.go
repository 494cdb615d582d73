// Package activities defines the Temporal activity I/O structs and the
// Activities implementation that bridges Temporal's serialization boundary
// to the comparison, storage and connector packages in internal/.
package activities

import "github.com/finops-claw-gang/eventcheck-go/internal/domain"

// Registered activity names. Workflows schedule activities by these names.
const (
	FetchEventName     = "FetchEvent"
	CompareEventsName  = "CompareEvents"
	RecordResultName   = "RecordResult"
	PublishMetricsName = "PublishMetrics"
)

// SourceRef selects where events are read from. The zero value means the
// worker's default event source.
type SourceRef struct {
	Name    string `json:"name,omitempty"`
	RoleARN string `json:"role_arn,omitempty"`
	Region  string `json:"region,omitempty"`
}

// FetchEventInput is the activity input for reading one raw event.
type FetchEventInput struct {
	Audit   string    `json:"audit"`
	Source  SourceRef `json:"source,omitempty"`
	EventID string    `json:"event_id"`
}

// FetchEventOutput carries the raw payload as text so it survives the JSON
// payload converter unchanged.
type FetchEventOutput struct {
	Payload string `json:"payload"`
}

// CompareEventsInput is the activity input for comparing a raw pair.
// A nil Aliases list selects the built-in rules; an empty list disables aliasing.
type CompareEventsInput struct {
	Audit   string             `json:"audit"`
	PairID  string             `json:"pair_id"`
	A       string             `json:"a"`
	B       string             `json:"b"`
	Aliases []domain.AliasRule `json:"aliases"`
}

// CompareEventsOutput holds either the result or the per-side parse errors.
type CompareEventsOutput struct {
	Result      *domain.ComparisonResult `json:"result,omitempty"`
	ParseErrors map[string]string        `json:"parse_errors,omitempty"`
}

// Malformed reports whether the pair failed to parse.
func (o CompareEventsOutput) Malformed() bool { return len(o.ParseErrors) > 0 }

// RecordResultInput is the activity input for storing a comparison.
type RecordResultInput struct {
	Audit   string                  `json:"audit"`
	PairID  string                  `json:"pair_id"`
	A       string                  `json:"a"`
	B       string                  `json:"b"`
	Aliases []domain.AliasRule      `json:"aliases"`
	Result  domain.ComparisonResult `json:"result"`
}

// RecordResultOutput identifies the stored comparison.
type RecordResultOutput struct {
	ComparisonID string `json:"comparison_id"`
	Fingerprint  string `json:"fingerprint"`
}

// PublishMetricsInput is the activity input for publishing one comparison's metrics.
type PublishMetricsInput struct {
	Audit  string                  `json:"audit"`
	Result domain.ComparisonResult `json:"result"`
}
