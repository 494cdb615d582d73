// Package uischema defines the typed UI contract emitted for a comparison.
// The frontend renders components from this schema -- it never decides what
// to show on its own.
package uischema

// UISchema is the top-level schema emitted for one comparison.
type UISchema struct {
	Version    string      `json:"ui_schema_version"`
	Status     Status      `json:"status"`
	Components []Component `json:"components"`
	Actions    []Action    `json:"actions"`
}

// Status is the overall state of the view.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusCompared   Status = "compared"
	StatusParseError Status = "parse_error"
)

// ComponentType identifies what component to render.
type ComponentType string

const (
	ComponentSummaryBadge ComponentType = "summary_badge"
	ComponentNamingCard   ComponentType = "naming_card"
	ComponentTypesCard    ComponentType = "types_card"
	ComponentOverallCard  ComponentType = "overall_card"
	ComponentRawReport    ComponentType = "raw_report"
)

// Tone selects the badge styling.
type Tone string

const (
	ToneIdle Tone = "idle"
	ToneOK   Tone = "ok"
	ToneFail Tone = "fail"
)

// Visibility controls component rendering.
type Visibility string

const (
	VisibilityVisible   Visibility = "visible"
	VisibilityHidden    Visibility = "hidden"
	VisibilityCollapsed Visibility = "collapsed"
)

// Component is a single renderable UI element.
type Component struct {
	Type       ComponentType  `json:"type"`
	Title      string         `json:"title"`
	Priority   int            `json:"priority"`
	Visibility Visibility     `json:"visibility"`
	Data       map[string]any `json:"data,omitempty"`
}

// ActionUIType classifies the user-facing action.
type ActionUIType string

const (
	ActionCheck       ActionUIType = "check"
	ActionLoadExample ActionUIType = "load_example"
)

// Action is a user-triggerable operation from the UI.
type Action struct {
	Type  ActionUIType `json:"type"`
	Label string       `json:"label"`
}
