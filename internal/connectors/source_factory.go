package connectors

import (
	"context"

	"github.com/finops-claw-gang/eventcheck-go/internal/connectors/aws"
	"github.com/finops-claw-gang/eventcheck-go/internal/connectors/aws/athena"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
)

// SourceFactory creates Athena event sources in other accounts using
// assumed-role sessions. It implements activities.SourceDeps.
type SourceFactory struct {
	provider *aws.SourceConfigProvider
	events   EventsTable
	limiter  *ratelimit.ServiceLimiter
}

// Compile-time check.
var _ activities.SourceDeps = (*SourceFactory)(nil)

// NewSourceFactory creates a factory backed by the given config provider.
// Every source reads the same table layout.
func NewSourceFactory(provider *aws.SourceConfigProvider, events EventsTable, limiter *ratelimit.ServiceLimiter) *SourceFactory {
	return &SourceFactory{provider: provider, events: events, limiter: limiter}
}

// Source creates an Athena querier for the referenced account.
func (f *SourceFactory) Source(ctx context.Context, ref activities.SourceRef) (activities.EventSource, error) {
	cfg, err := f.provider.ForSource(ctx, ref.Name, ref.RoleARN, ref.Region)
	if err != nil {
		return nil, err
	}
	return athena.New(cfg, f.events.Database, f.events.Table, f.events.Workgroup, f.events.OutputBucket).
		WithLimiter(f.limiter), nil
}
