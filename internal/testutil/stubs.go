// Package testutil provides fixture-backed stand-ins for the worker's AWS
// dependencies. The worker uses them in stub mode and tests use them directly.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

var fixtureIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// StubEvents satisfies activities.EventSource by reading <id>.json from FixturesDir.
type StubEvents struct {
	FixturesDir string
}

func (s *StubEvents) FetchEvent(_ context.Context, eventID string) ([]byte, error) {
	if !fixtureIDPattern.MatchString(eventID) || eventID == "." || eventID == ".." {
		return nil, fmt.Errorf("stub events: invalid event id %q", eventID)
	}
	data, err := os.ReadFile(filepath.Join(s.FixturesDir, eventID+".json"))
	if err != nil {
		return nil, fmt.Errorf("stub events: %w", err)
	}
	return data, nil
}

// Published is one call recorded by StubPublisher.
type Published struct {
	Audit  string
	Result domain.ComparisonResult
}

// StubPublisher satisfies activities.MetricPublisher by recording calls in memory.
type StubPublisher struct {
	mu    sync.Mutex
	calls []Published
	Err   error
}

func (s *StubPublisher) PublishComparison(_ context.Context, audit string, result domain.ComparisonResult) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Published{Audit: audit, Result: result})
	return nil
}

// Calls returns a copy of the recorded calls.
func (s *StubPublisher) Calls() []Published {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Published, len(s.calls))
	copy(out, s.calls)
	return out
}

// FixturesDir returns the absolute path to the testdata/events directory.
func FixturesDir() string {
	// internal/testutil/ -> repo root.
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "events")
}

// AuditsDir returns the absolute path to the testdata/audits directory.
func AuditsDir() string {
	return filepath.Join(FixturesDir(), "..", "audits")
}
