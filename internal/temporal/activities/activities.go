package activities

import (
	"context"
	"fmt"

	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
	"github.com/finops-claw-gang/eventcheck-go/internal/observability"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
)

// EventSource reads one raw event payload by id.
// Satisfied by athena.Querier, command.Source and testutil.StubEvents.
type EventSource interface {
	FetchEvent(ctx context.Context, eventID string) ([]byte, error)
}

// MetricPublisher exports a comparison outcome.
// Satisfied by cloudwatch.Client and testutil.StubPublisher.
type MetricPublisher interface {
	PublishComparison(ctx context.Context, audit string, result domain.ComparisonResult) error
}

// SourceDeps resolves event sources that live in other accounts.
// Implemented by connectors.SourceFactory; defined here to avoid import cycles.
type SourceDeps interface {
	Source(ctx context.Context, ref SourceRef) (EventSource, error)
}

// Activities holds the dependencies for all Temporal activities.
// Each method is registered as a Temporal activity.
type Activities struct {
	Events    EventSource
	Sources   SourceDeps                // nil = only the default source
	Store     store.Store               // nil = results are not persisted
	Publisher MetricPublisher           // nil = metrics are not exported
	Metrics   *observability.Metrics    // nil = no OTel instruments
	Budget    *ratelimit.ActivityBudget // nil = no budget enforcement
}

// checkBudget enforces per-audit activity budgets when configured.
func (a *Activities) checkBudget(audit, activityName string) error {
	if a.Budget == nil {
		return nil
	}
	if err := a.Budget.Check(audit, activityName); err != nil {
		return err
	}
	a.Budget.Record(audit, activityName)
	return nil
}

func (a *Activities) record(ctx context.Context, name string) {
	if a.Metrics != nil {
		a.Metrics.RecordActivity(ctx, name)
	}
}

// resolveSource returns a cross-account source when the ref names a role,
// otherwise the default one.
func (a *Activities) resolveSource(ctx context.Context, ref SourceRef) (EventSource, error) {
	if ref.RoleARN != "" {
		if a.Sources == nil {
			return nil, fmt.Errorf("source %q requires a role but no source factory is configured", ref.Name)
		}
		return a.Sources.Source(ctx, ref)
	}
	if a.Events == nil {
		return nil, fmt.Errorf("no event source configured")
	}
	return a.Events, nil
}

// FetchEvent reads one raw event from the selected source.
func (a *Activities) FetchEvent(ctx context.Context, in FetchEventInput) (FetchEventOutput, error) {
	if err := a.checkBudget(in.Audit, FetchEventName); err != nil {
		return FetchEventOutput{}, err
	}
	a.record(ctx, FetchEventName)

	src, err := a.resolveSource(ctx, in.Source)
	if err != nil {
		return FetchEventOutput{}, fmt.Errorf("fetch activity: resolve source: %w", err)
	}
	payload, err := src.FetchEvent(ctx, in.EventID)
	if err != nil {
		return FetchEventOutput{}, fmt.Errorf("fetch activity: %s: %w", in.EventID, err)
	}
	return FetchEventOutput{Payload: string(payload)}, nil
}

// CompareEvents parses and compares a raw pair. Malformed input is reported
// in the output rather than as an activity error so it is never retried.
func (a *Activities) CompareEvents(ctx context.Context, in CompareEventsInput) (CompareEventsOutput, error) {
	a.record(ctx, CompareEventsName)

	recA, recB, err := eventjson.ParsePair([]byte(in.A), []byte(in.B))
	if err != nil {
		mal, ok := eventjson.AsMalformed(err)
		if !ok {
			return CompareEventsOutput{}, fmt.Errorf("compare activity: %w", err)
		}
		if a.Metrics != nil {
			a.Metrics.RecordParseFailure(ctx)
		}
		out := CompareEventsOutput{ParseErrors: make(map[string]string)}
		for side, msg := range mal.Messages() {
			out.ParseErrors[string(side)] = msg
		}
		return out, nil
	}

	result := comparatorFor(in.Aliases).Compare(recA, recB)
	if a.Metrics != nil {
		a.Metrics.RecordComparison(ctx, result)
	}
	return CompareEventsOutput{Result: &result}, nil
}

// RecordResult stores a comparison and returns its id and fingerprint.
func (a *Activities) RecordResult(ctx context.Context, in RecordResultInput) (RecordResultOutput, error) {
	if a.Store == nil {
		return RecordResultOutput{}, nil
	}
	a.record(ctx, RecordResultName)

	recA, recB, err := eventjson.ParsePair([]byte(in.A), []byte(in.B))
	if err != nil {
		return RecordResultOutput{}, fmt.Errorf("record activity: %w", err)
	}
	entry, err := store.NewEntry(recA, recB, aliasesFor(in.Aliases), in.Result)
	if err != nil {
		return RecordResultOutput{}, fmt.Errorf("record activity: %w", err)
	}
	saved, err := a.Store.Save(ctx, entry)
	if err != nil {
		return RecordResultOutput{}, fmt.Errorf("record activity: %w", err)
	}
	return RecordResultOutput{ComparisonID: saved.ID, Fingerprint: saved.Fingerprint}, nil
}

// PublishMetrics exports one comparison's grade and issue counts.
func (a *Activities) PublishMetrics(ctx context.Context, in PublishMetricsInput) error {
	if a.Publisher == nil {
		return nil
	}
	if err := a.checkBudget(in.Audit, PublishMetricsName); err != nil {
		return err
	}
	a.record(ctx, PublishMetricsName)

	if err := a.Publisher.PublishComparison(ctx, in.Audit, in.Result); err != nil {
		return fmt.Errorf("publish activity: %w", err)
	}
	return nil
}

func aliasesFor(rules []domain.AliasRule) []domain.AliasRule {
	if rules == nil {
		return domain.DefaultAliasRules()
	}
	return rules
}

func comparatorFor(rules []domain.AliasRule) *compare.Comparator {
	return compare.New(aliasesFor(rules)...)
}
