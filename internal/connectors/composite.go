// Package connectors composes the individual AWS service clients into the
// interfaces consumed by activities.
package connectors

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/finops-claw-gang/eventcheck-go/internal/connectors/aws/athena"
	"github.com/finops-claw-gang/eventcheck-go/internal/connectors/aws/cloudwatch"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
)

// EventsTable locates the Athena table that holds raw events.
type EventsTable struct {
	Database     string
	Table        string
	Workgroup    string
	OutputBucket string
}

// AWSEventClient satisfies activities.EventSource and activities.MetricPublisher.
// Methods:
//   - FetchEvent -> Athena
//   - PublishComparison -> CloudWatch
type AWSEventClient struct {
	ath *athena.Querier
	cw  *cloudwatch.Client
}

// NewAWSEventClient creates an AWSEventClient from an AWS config. A nil
// limiter leaves both clients unthrottled.
func NewAWSEventClient(cfg aws.Config, events EventsTable, namespace string, limiter *ratelimit.ServiceLimiter) *AWSEventClient {
	return &AWSEventClient{
		ath: athena.New(cfg, events.Database, events.Table, events.Workgroup, events.OutputBucket).WithLimiter(limiter),
		cw:  cloudwatch.New(cfg, namespace).WithLimiter(limiter),
	}
}

// NewAWSEventClientFrom composes existing clients (for testing).
func NewAWSEventClientFrom(ath *athena.Querier, cw *cloudwatch.Client) *AWSEventClient {
	return &AWSEventClient{ath: ath, cw: cw}
}

func (c *AWSEventClient) FetchEvent(ctx context.Context, eventID string) ([]byte, error) {
	return c.ath.FetchEvent(ctx, eventID)
}

func (c *AWSEventClient) PublishComparison(ctx context.Context, audit string, result domain.ComparisonResult) error {
	return c.cw.PublishComparison(ctx, audit, result)
}
