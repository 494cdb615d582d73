// Package workflows defines the Temporal workflow functions.
package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/versioning"
)

const (
	// QueryNameState returns the current AuditState.
	QueryNameState = "state"
	// UpdateNameStop asks a running audit to finish after the current pair.
	UpdateNameStop = "stop"
)

// TerminationReason describes why the workflow ended.
type TerminationReason string

const (
	ReasonCompleted TerminationReason = "completed"
	ReasonNoPairs   TerminationReason = "no_pairs"
	ReasonStopped   TerminationReason = "stopped"
	// ReasonRunning is never returned by the workflow. Queriers report it
	// for audits still in progress.
	ReasonRunning TerminationReason = "running"
)

// PairStatus is the outcome class of one audited pair.
type PairStatus string

const (
	PairCompared    PairStatus = "compared"
	PairMalformed   PairStatus = "malformed"
	PairFetchFailed PairStatus = "fetch_failed"
)

// AuditPair names two stored events to compare.
type AuditPair struct {
	ID string `json:"id" yaml:"id"`
	A  string `json:"a" yaml:"a"`
	B  string `json:"b" yaml:"b"`
}

// AuditInput is the input to the consistency audit workflow.
// A nil Aliases list selects the built-in rules.
type AuditInput struct {
	Name        string               `json:"name" yaml:"name"`
	Source      activities.SourceRef `json:"source,omitempty" yaml:"source,omitempty"`
	Pairs       []AuditPair          `json:"pairs" yaml:"pairs"`
	Aliases     []domain.AliasRule   `json:"aliases" yaml:"aliases"`
	SkipRecord  bool                 `json:"skip_record,omitempty" yaml:"skip_record,omitempty"`
	SkipPublish bool                 `json:"skip_publish,omitempty" yaml:"skip_publish,omitempty"`
}

// PairOutcome records what happened to one pair.
type PairOutcome struct {
	ID           string                   `json:"id"`
	Status       PairStatus               `json:"status"`
	ComparisonID string                   `json:"comparison_id,omitempty"`
	Result       *domain.ComparisonResult `json:"result,omitempty"`
	// Errors holds parse errors keyed by side ("A", "B") or step failures
	// keyed by step ("fetch", "record", "publish").
	Errors map[string]string `json:"errors,omitempty"`
}

// AuditState is the progress of an audit, exposed through QueryNameState.
type AuditState struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Total     int            `json:"total"`
	Done      int            `json:"done"`
	Current   string         `json:"current,omitempty"`
	Grades    map[string]int `json:"grades"`
	Malformed int            `json:"malformed"`
	Failed    int            `json:"failed"`
	Outcomes  []PairOutcome  `json:"outcomes"`
	StoppedBy string         `json:"stopped_by,omitempty"`
}

// AuditResult is the output of the consistency audit workflow. The workflow
// returns this on all paths; per-pair failures are recorded, not raised.
type AuditResult struct {
	State  AuditState        `json:"state"`
	Reason TerminationReason `json:"reason"`
}

// StopRequest is the argument of the stop update.
type StopRequest struct {
	By     string `json:"by"`
	Reason string `json:"reason,omitempty"`
}

// ConsistencyAuditWorkflow compares a list of stored event pairs. For each pair:
//
//	fetch A and B (fetch queue, in parallel) -> compare -> record -> publish
//
// Fetch failures and malformed payloads are recorded on the pair and the
// audit moves on.
func ConsistencyAuditWorkflow(ctx workflow.Context, input AuditInput) (AuditResult, error) {
	logger := workflow.GetLogger(ctx)
	state := AuditState{
		Name:     input.Name,
		Version:  versioning.ConsistencyAuditV1,
		Total:    len(input.Pairs),
		Grades:   make(map[string]int),
		Outcomes: []PairOutcome{},
	}

	if err := workflow.SetQueryHandler(ctx, QueryNameState, func() (AuditState, error) {
		return state, nil
	}); err != nil {
		return AuditResult{}, fmt.Errorf("register state query: %w", err)
	}

	var stop *StopRequest
	err := workflow.SetUpdateHandlerWithOptions(
		ctx,
		UpdateNameStop,
		func(ctx workflow.Context, req StopRequest) (string, error) {
			stop = &req
			logger.Info("stop requested", "by", req.By, "reason", req.Reason)
			return "stopping", nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(req StopRequest) error {
				if req.By == "" {
					return fmt.Errorf("stop 'by' field is required")
				}
				if stop != nil {
					return fmt.Errorf("stop already requested")
				}
				return nil
			},
		},
	)
	if err != nil {
		return AuditResult{}, fmt.Errorf("register stop handler: %w", err)
	}

	if len(input.Pairs) == 0 {
		logger.Info("no pairs provided, exiting")
		return AuditResult{State: state, Reason: ReasonNoPairs}, nil
	}

	// Reads are idempotent and retried; compare is pure and runs once.
	fetchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		TaskQueue:           versioning.QueueFetch,
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	})
	compareCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
	sinkCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	for _, pair := range input.Pairs {
		if stop != nil {
			state.StoppedBy = stop.By
			state.Current = ""
			logger.Info("audit stopped", "done", state.Done, "total", state.Total)
			return AuditResult{State: state, Reason: ReasonStopped}, nil
		}
		state.Current = pair.ID

		outcome := auditPair(ctx, fetchCtx, compareCtx, sinkCtx, input, pair)
		switch outcome.Status {
		case PairCompared:
			state.Grades[string(outcome.Result.Grade)]++
		case PairMalformed:
			state.Malformed++
		case PairFetchFailed:
			state.Failed++
		}
		state.Outcomes = append(state.Outcomes, outcome)
		state.Done++
		logger.Info("pair audited", "pair", pair.ID, "status", outcome.Status)
	}

	state.Current = ""
	logger.Info("audit completed",
		"total", state.Total,
		"malformed", state.Malformed,
		"failed", state.Failed,
	)
	return AuditResult{State: state, Reason: ReasonCompleted}, nil
}

func auditPair(ctx, fetchCtx, compareCtx, sinkCtx workflow.Context, input AuditInput, pair AuditPair) PairOutcome {
	logger := workflow.GetLogger(ctx)
	outcome := PairOutcome{ID: pair.ID}

	futA := workflow.ExecuteActivity(fetchCtx, activities.FetchEventName, activities.FetchEventInput{
		Audit: input.Name, Source: input.Source, EventID: pair.A,
	})
	futB := workflow.ExecuteActivity(fetchCtx, activities.FetchEventName, activities.FetchEventInput{
		Audit: input.Name, Source: input.Source, EventID: pair.B,
	})
	var rawA, rawB activities.FetchEventOutput
	errA := futA.Get(ctx, &rawA)
	errB := futB.Get(ctx, &rawB)
	if errA != nil || errB != nil {
		outcome.Status = PairFetchFailed
		outcome.Errors = make(map[string]string)
		if errA != nil {
			outcome.Errors["fetch_a"] = errA.Error()
		}
		if errB != nil {
			outcome.Errors["fetch_b"] = errB.Error()
		}
		logger.Warn("fetch failed", "pair", pair.ID, "error_a", errA, "error_b", errB)
		return outcome
	}

	var cmp activities.CompareEventsOutput
	err := workflow.ExecuteActivity(compareCtx, activities.CompareEventsName, activities.CompareEventsInput{
		Audit: input.Name, PairID: pair.ID, A: rawA.Payload, B: rawB.Payload, Aliases: input.Aliases,
	}).Get(ctx, &cmp)
	if err != nil {
		outcome.Status = PairFetchFailed
		outcome.Errors = map[string]string{"compare": err.Error()}
		return outcome
	}
	if cmp.Malformed() {
		outcome.Status = PairMalformed
		outcome.Errors = cmp.ParseErrors
		return outcome
	}

	outcome.Status = PairCompared
	outcome.Result = cmp.Result

	if !input.SkipRecord {
		var rec activities.RecordResultOutput
		err := workflow.ExecuteActivity(sinkCtx, activities.RecordResultName, activities.RecordResultInput{
			Audit: input.Name, PairID: pair.ID, A: rawA.Payload, B: rawB.Payload,
			Aliases: input.Aliases, Result: *cmp.Result,
		}).Get(ctx, &rec)
		if err != nil {
			outcome.addError("record", err)
		} else {
			outcome.ComparisonID = rec.ComparisonID
		}
	}

	if !input.SkipPublish {
		err := workflow.ExecuteActivity(sinkCtx, activities.PublishMetricsName, activities.PublishMetricsInput{
			Audit: input.Name, Result: *cmp.Result,
		}).Get(ctx, nil)
		if err != nil {
			outcome.addError("publish", err)
		}
	}
	return outcome
}

func (o *PairOutcome) addError(step string, err error) {
	if o.Errors == nil {
		o.Errors = make(map[string]string)
	}
	o.Errors[step] = err.Error()
}
