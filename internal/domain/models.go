package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Field is one name/value pair of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is a flat event: field name to JSON value, in document order.
// The zero value is an empty record.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a Record from fields. A repeated name replaces the
// earlier value and keeps its position.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set adds or replaces a field.
func (r *Record) Set(name string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = value
}

// Keys returns the field names in iteration order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// Has reports whether the record contains the field.
func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Get returns the value of a field.
func (r Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// KindOf returns the type category of a field, or KindUndefined if absent.
func (r Record) KindOf(name string) Kind {
	v, ok := r.values[name]
	if !ok {
		return KindUndefined
	}
	return KindOf(v)
}

// MarshalJSON encodes the record as a JSON object in iteration order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// KindOf returns the type category of a decoded JSON value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBoolean
	case string:
		return KindString
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case map[string]any, Record, *Record:
		return KindObject
	case []any:
		return KindArray
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return KindNull
		}
		return KindOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return KindNull
		}
		return KindArray
	case reflect.Map:
		if rv.IsNil() {
			return KindNull
		}
		return KindObject
	case reflect.Struct:
		return KindObject
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	}
	return KindUndefined
}

// AliasRule declares two differently spelled fields as one concept.
// Label names the concept in type mismatch messages.
type AliasRule struct {
	A     string `json:"a" yaml:"a"`
	B     string `json:"b" yaml:"b"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DefaultAliasRules returns the built-in user_id/userId pair.
func DefaultAliasRules() []AliasRule {
	return []AliasRule{{A: "user_id", B: "userId", Label: "user"}}
}

// label returns the concept name used in alias type mismatch messages.
func (a AliasRule) label() string {
	if a.Label != "" {
		return a.Label
	}
	return a.B
}

// Issue is one discrepancy. Which fields are set depends on Kind.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Field   string    `json:"field"`
	FieldB  string    `json:"field_b,omitempty"`
	Concept string    `json:"concept,omitempty"`
	TypeA   Kind      `json:"type_a,omitempty"`
	TypeB   Kind      `json:"type_b,omitempty"`
}

// NameAliasIssue reports that rule.A in event A and rule.B in event B name the same concept.
func NameAliasIssue(rule AliasRule) Issue {
	return Issue{Kind: IssueNameAlias, Field: rule.A, FieldB: rule.B, Concept: rule.label()}
}

// AliasTypeIssue reports a type mismatch between the two sides of an alias rule.
func AliasTypeIssue(rule AliasRule, a, b Kind) Issue {
	return Issue{Kind: IssueTypeMismatch, Field: rule.A, FieldB: rule.B, Concept: rule.label(), TypeA: a, TypeB: b}
}

// TypeIssue reports a type mismatch on a field present in both events.
func TypeIssue(field string, a, b Kind) Issue {
	return Issue{Kind: IssueTypeMismatch, Field: field, TypeA: a, TypeB: b}
}

// OnlyInAIssue reports a field present only in event A.
func OnlyInAIssue(field string) Issue {
	return Issue{Kind: IssueOnlyInA, Field: field}
}

// OnlyInBIssue reports a field present only in event B.
func OnlyInBIssue(field string) Issue {
	return Issue{Kind: IssueOnlyInB, Field: field}
}

// Message renders the issue in its display wording.
func (i Issue) Message() string {
	switch i.Kind {
	case IssueNameAlias:
		return fmt.Sprintf("Field name mismatch: %s (Event A) vs %s (Event B)", i.Field, i.FieldB)
	case IssueTypeMismatch:
		if i.Concept != "" {
			return fmt.Sprintf("Type mismatch for %s/%s: %s vs %s", i.Concept, i.Field, i.TypeA, i.TypeB)
		}
		return fmt.Sprintf("Type mismatch for %q: %s vs %s", i.Field, i.TypeA, i.TypeB)
	case IssueOnlyInA:
		return "Field only in Event A: " + i.Field
	case IssueOnlyInB:
		return "Field only in Event B: " + i.Field
	}
	return fmt.Sprintf("unknown issue %q: %s", i.Kind, i.Field)
}

func (i Issue) String() string { return i.Message() }

// MarshalJSON adds the rendered message to the structured fields.
func (i Issue) MarshalJSON() ([]byte, error) {
	type plain Issue
	return json.Marshal(struct {
		plain
		Message string `json:"message"`
	}{plain: plain(i), Message: i.Message()})
}

// ComparisonResult is the ordered issue list and the grade derived from it.
type ComparisonResult struct {
	Issues []Issue `json:"issues"`
	Grade  Grade   `json:"consistency"`
}

// NewComparisonResult grades the issues. A nil slice becomes empty.
func NewComparisonResult(issues []Issue) ComparisonResult {
	if issues == nil {
		issues = []Issue{}
	}
	return ComparisonResult{Issues: issues, Grade: GradeFor(len(issues))}
}

// Count returns the number of issues.
func (r ComparisonResult) Count() int { return len(r.Issues) }

// Consistent reports whether no issues were found.
func (r ComparisonResult) Consistent() bool { return len(r.Issues) == 0 }

// Messages returns the display wording of each issue, in order.
func (r ComparisonResult) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, is := range r.Issues {
		out[i] = is.Message()
	}
	return out
}

// CountByKind tallies issues per kind.
func (r ComparisonResult) CountByKind() map[IssueKind]int {
	counts := make(map[IssueKind]int)
	for _, is := range r.Issues {
		counts[is.Kind]++
	}
	return counts
}
