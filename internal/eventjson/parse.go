// Package eventjson parses raw event text into ordered records and reports
// malformed input per side before any comparison runs.
package eventjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// ErrNotObject is returned when the top-level JSON value is not an object.
var ErrNotObject = errors.New("event must be a JSON object")

// ParseRecord decodes a JSON object into a Record, keeping document key order.
// Numbers are kept as json.Number. A repeated key keeps its first position
// and its last value. Syntax errors name the line and column of the offending byte.
func ParseRecord(text []byte) (domain.Record, error) {
	var rec domain.Record

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return rec, describe(err, text)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return rec, ErrNotObject
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return rec, describe(err, text)
		}
		key, ok := tok.(string)
		if !ok {
			line, col := position(text, dec.InputOffset())
			return rec, fmt.Errorf("expected object key at line %d, column %d", line, col)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return rec, fmt.Errorf("field %q: %w", key, describe(err, text))
		}
		rec.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return rec, describe(err, text)
	}
	end := dec.InputOffset()
	if rest := bytes.TrimLeft(text[end:], " \t\r\n"); len(rest) > 0 {
		line, col := position(text, end+int64(len(text[end:])-len(rest)))
		return rec, fmt.Errorf("unexpected data after event at line %d, column %d", line, col)
	}
	return rec, nil
}

func describe(err error, text []byte) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("unexpected end of JSON input")
	}
	var syn *json.SyntaxError
	if !errors.As(err, &syn) {
		return err
	}
	// Decoder offsets depend on how far it had buffered. A whole-document
	// scan counts from the first byte and stops just past the bad one.
	var whole *json.SyntaxError
	if errors.As(json.Unmarshal(text, new(any)), &whole) {
		syn = whole
	}
	line, col := position(text, syn.Offset-1)
	return fmt.Errorf("%s (line %d, column %d)", syn.Error(), line, col)
}

// position converts a byte offset into a 1-based line and column.
func position(text []byte, offset int64) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	before := text[:offset]
	return bytes.Count(before, []byte{'\n'}) + 1, int(offset) - bytes.LastIndexByte(before, '\n')
}

// Side identifies one of the two compared events.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// MalformedInputError reports which side(s) failed to parse.
// A nil field means that side parsed cleanly.
type MalformedInputError struct {
	A error
	B error
}

func (e *MalformedInputError) Error() string {
	var parts []string
	for _, s := range e.Sides() {
		parts = append(parts, fmt.Sprintf("event %s: %v", s, e.For(s)))
	}
	return "malformed input: " + strings.Join(parts, "; ")
}

// Sides returns the failing sides, A before B.
func (e *MalformedInputError) Sides() []Side {
	var out []Side
	if e.A != nil {
		out = append(out, SideA)
	}
	if e.B != nil {
		out = append(out, SideB)
	}
	return out
}

// For returns the parse error of one side.
func (e *MalformedInputError) For(s Side) error {
	if s == SideA {
		return e.A
	}
	return e.B
}

// Messages returns the per-side diagnostics keyed by side.
func (e *MalformedInputError) Messages() map[Side]string {
	out := make(map[Side]string, 2)
	for _, s := range e.Sides() {
		out[s] = e.For(s).Error()
	}
	return out
}

// ParsePair parses both events. If either fails, the error is a
// *MalformedInputError naming every failing side.
func ParsePair(a, b []byte) (domain.Record, domain.Record, error) {
	recA, errA := ParseRecord(a)
	recB, errB := ParseRecord(b)
	if errA != nil || errB != nil {
		return domain.Record{}, domain.Record{}, &MalformedInputError{A: errA, B: errB}
	}
	return recA, recB, nil
}

// AsMalformed unwraps a *MalformedInputError.
func AsMalformed(err error) (*MalformedInputError, bool) {
	var m *MalformedInputError
	ok := errors.As(err, &m)
	return m, ok
}
