package agui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
	"github.com/finops-claw-gang/eventcheck-go/internal/uischema"
)

// StateReader reads the current state of an audit.
// Satisfied by querier.AuditQuerier.
type StateReader interface {
	GetAuditState(ctx context.Context, workflowID string) (*workflows.AuditResult, error)
}

// StreamConfig controls SSE stream behavior.
type StreamConfig struct {
	PollInterval time.Duration
	MaxDuration  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() StreamConfig {
	return StreamConfig{
		PollInterval: 2 * time.Second,
		MaxDuration:  30 * time.Minute,
	}
}

// StreamHandler serves SSE events for an audit's progress. It polls the
// audit state and emits a snapshot, then step and delta events as pairs
// complete, until the audit finishes or MaxDuration elapses.
func StreamHandler(q StateReader, cfg StreamConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wfID := r.PathValue("id")
		if wfID == "" {
			http.Error(w, "workflow id required", http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		ctx, cancel := context.WithTimeout(r.Context(), cfg.MaxDuration)
		defer cancel()

		emit := func(t EventType, data any) {
			writeSSE(w, flusher, Event{Type: t, Timestamp: time.Now().UTC(), WorkflowID: wfID, Data: data})
		}

		emit(EventRunStarted, nil)

		result, err := q.GetAuditState(ctx, wfID)
		if err != nil {
			emit(EventRunError, ErrorData{Message: err.Error()})
			return
		}
		emit(EventStateSnapshot, StateSnapshotData{State: result.State, UISchema: latestUI(result.State)})
		if result.State.Current != "" {
			emit(EventStepStarted, StepData{Pair: result.State.Current})
		}
		if finished(result) {
			emit(EventRunFinished, FinishedData{Reason: string(result.Reason)})
			return
		}

		last := result.State
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err = q.GetAuditState(ctx, wfID)
				if err != nil {
					emit(EventRunError, ErrorData{Message: err.Error()})
					return
				}
				cur := result.State

				if cur.Current != last.Current {
					if last.Current != "" {
						emit(EventStepFinished, StepData{Pair: last.Current})
					}
					if cur.Current != "" {
						emit(EventStepStarted, StepData{Pair: cur.Current})
					}
				}

				if patches := computePatches(last, cur); len(patches) > 0 {
					emit(EventStateDelta, StateDeltaData{Patches: patches, UISchema: latestUI(cur)})
				}
				last = cur

				if finished(result) {
					emit(EventRunFinished, FinishedData{Reason: string(result.Reason)})
					return
				}
			}
		}
	}
}

func finished(r *workflows.AuditResult) bool {
	return r.Reason != workflows.ReasonRunning
}

// latestUI renders the last compared pair, or the idle schema before any.
func latestUI(s workflows.AuditState) uischema.UISchema {
	for i := len(s.Outcomes) - 1; i >= 0; i-- {
		if res := s.Outcomes[i].Result; res != nil {
			return uischema.Build(*res)
		}
	}
	return uischema.Idle()
}

// computePatches lists the changes from prev to cur. Outcomes only grow, so
// new ones are appended.
func computePatches(prev, cur workflows.AuditState) []Patch {
	var patches []Patch

	if cur.Done != prev.Done {
		patches = append(patches, Patch{Op: "replace", Path: "/done", Value: cur.Done})
	}
	if cur.Current != prev.Current {
		if cur.Current == "" {
			patches = append(patches, Patch{Op: "remove", Path: "/current"})
		} else {
			patches = append(patches, Patch{Op: "replace", Path: "/current", Value: cur.Current})
		}
	}

	grades := make([]string, 0, len(cur.Grades))
	for g := range cur.Grades {
		grades = append(grades, g)
	}
	slices.Sort(grades)
	for _, g := range grades {
		n := cur.Grades[g]
		old, ok := prev.Grades[g]
		switch {
		case !ok:
			patches = append(patches, Patch{Op: "add", Path: "/grades/" + g, Value: n})
		case old != n:
			patches = append(patches, Patch{Op: "replace", Path: "/grades/" + g, Value: n})
		}
	}

	if cur.Malformed != prev.Malformed {
		patches = append(patches, Patch{Op: "replace", Path: "/malformed", Value: cur.Malformed})
	}
	if cur.Failed != prev.Failed {
		patches = append(patches, Patch{Op: "replace", Path: "/failed", Value: cur.Failed})
	}
	for i := len(prev.Outcomes); i < len(cur.Outcomes); i++ {
		patches = append(patches, Patch{Op: "add", Path: "/outcomes/" + strconv.Itoa(i), Value: cur.Outcomes[i]})
	}
	if cur.StoppedBy != prev.StoppedBy {
		patches = append(patches, Patch{Op: "add", Path: "/stopped_by", Value: cur.StoppedBy})
	}
	return patches
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	flusher.Flush()
}
