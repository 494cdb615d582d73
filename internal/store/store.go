// Package store persists comparison results keyed by a generated id and by a
// canonical fingerprint of the compared pair.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// ErrNotFound is returned when no entry matches the lookup.
var ErrNotFound = errors.New("store: comparison not found")

// Entry is one stored comparison.
type Entry struct {
	ID          string                  `json:"id"`
	Fingerprint string                  `json:"fingerprint"`
	A           json.RawMessage         `json:"event_a"`
	B           json.RawMessage         `json:"event_b"`
	Aliases     []domain.AliasRule      `json:"aliases"`
	Result      domain.ComparisonResult `json:"result"`
	CreatedAt   time.Time               `json:"created_at"`
}

// Store saves and retrieves comparison entries.
type Store interface {
	// Save assigns an id and timestamp when missing and stores the entry.
	Save(ctx context.Context, e Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	// FindByFingerprint returns the most recent entry for a fingerprint.
	FindByFingerprint(ctx context.Context, fingerprint string) (Entry, error)
}

// NewEntry builds an unsaved entry for a compared pair, including its fingerprint.
// The stored events keep their field order.
func NewEntry(a, b domain.Record, aliases []domain.AliasRule, result domain.ComparisonResult) (Entry, error) {
	rawA, err := json.Marshal(a)
	if err != nil {
		return Entry{}, fmt.Errorf("store: encode event a: %w", err)
	}
	rawB, err := json.Marshal(b)
	if err != nil {
		return Entry{}, fmt.Errorf("store: encode event b: %w", err)
	}
	if aliases == nil {
		aliases = []domain.AliasRule{}
	}
	fp, err := fingerprint(a, b, aliases)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Fingerprint: fp,
		A:           rawA,
		B:           rawB,
		Aliases:     aliases,
		Result:      result,
	}, nil
}

// Fingerprint returns the hex SHA-256 of the RFC 8785 canonical form of the
// pair, each event's field order and the alias rules. Equal values written
// differently (1 and 1.0) share a fingerprint; a different field order does not,
// because issue order follows field order.
func Fingerprint(a, b domain.Record, aliases []domain.AliasRule) (string, error) {
	if aliases == nil {
		aliases = []domain.AliasRule{}
	}
	return fingerprint(a, b, aliases)
}

func canonical(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

func fingerprint(a, b domain.Record, aliases []domain.AliasRule) (string, error) {
	doc, err := canonical(struct {
		A       domain.Record      `json:"a"`
		B       domain.Record      `json:"b"`
		OrderA  []string           `json:"order_a"`
		OrderB  []string           `json:"order_b"`
		Aliases []domain.AliasRule `json:"aliases"`
	}{a, b, a.Keys(), b.Keys(), aliases})
	if err != nil {
		return "", fmt.Errorf("store: fingerprint: %w", err)
	}
	sum := sha256.Sum256(doc)
	return hex.EncodeToString(sum[:]), nil
}

func prepare(e Entry, now func() time.Time) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now().UTC()
	}
	return e
}
