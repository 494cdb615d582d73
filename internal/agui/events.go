// Package agui streams consistency audit progress as AG-UI protocol events
// over server-sent events.
package agui

import "time"

// EventType identifies an AG-UI event.
type EventType string

const (
	EventRunStarted    EventType = "RUN_STARTED"
	EventRunFinished   EventType = "RUN_FINISHED"
	EventRunError      EventType = "RUN_ERROR"
	EventStepStarted   EventType = "STEP_STARTED"
	EventStepFinished  EventType = "STEP_FINISHED"
	EventStateSnapshot EventType = "STATE_SNAPSHOT"
	EventStateDelta    EventType = "STATE_DELTA"
)

// Event is a single SSE event emitted to the client.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id"`
	Data       any       `json:"data,omitempty"`
}

// StateSnapshotData carries the full audit state in a STATE_SNAPSHOT event.
// UISchema renders the most recently compared pair.
type StateSnapshotData struct {
	State    any `json:"state"`
	UISchema any `json:"ui_schema"`
}

// StateDeltaData carries field-level changes in a STATE_DELTA event.
type StateDeltaData struct {
	Patches  []Patch `json:"patches"`
	UISchema any     `json:"ui_schema"`
}

// Patch is an RFC 6902-style JSON Patch operation against the audit state.
type Patch struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// StepData names the pair a step event refers to.
type StepData struct {
	Pair string `json:"pair"`
}

// FinishedData carries the termination reason in a RUN_FINISHED event.
type FinishedData struct {
	Reason string `json:"reason"`
}

// ErrorData carries error info for RUN_ERROR events.
type ErrorData struct {
	Message string `json:"message"`
}
