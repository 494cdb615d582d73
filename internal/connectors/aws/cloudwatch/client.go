// Package cloudwatch publishes comparison outcomes as CloudWatch custom metrics.
package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cw "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
)

// API is the subset of the CloudWatch client used by this package.
type API interface {
	PutMetricData(ctx context.Context, params *cw.PutMetricDataInput, optFns ...func(*cw.Options)) (*cw.PutMetricDataOutput, error)
}

// Client wraps the CloudWatch API.
type Client struct {
	api       API
	namespace string
	limiter   *ratelimit.ServiceLimiter
	now       func() time.Time
}

// New creates a CloudWatch client from an AWS config.
func New(cfg aws.Config, namespace string) *Client {
	return NewFromAPI(cw.NewFromConfig(cfg), namespace)
}

// NewFromAPI creates a Client from an explicit API implementation (for testing).
func NewFromAPI(api API, namespace string) *Client {
	return &Client{api: api, namespace: namespace, now: time.Now}
}

// WithLimiter throttles PutMetricData calls through l.
func (c *Client) WithLimiter(l *ratelimit.ServiceLimiter) *Client {
	c.limiter = l
	return c
}

// PublishComparison emits, for the audit:
//
//	Comparisons{Audit, Consistency} = 1
//	IssueCount{Audit}               = total issues
//	Issues{Audit, Kind}             = issues of that kind, one datum per kind present
func (c *Client) PublishComparison(ctx context.Context, audit string, result domain.ComparisonResult) error {
	ts := aws.Time(c.now().UTC())
	auditDim := cwtypes.Dimension{Name: aws.String("Audit"), Value: aws.String(audit)}

	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String("Comparisons"),
			Dimensions: []cwtypes.Dimension{auditDim, {Name: aws.String("Consistency"), Value: aws.String(string(result.Grade))}},
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
		},
		{
			MetricName: aws.String("IssueCount"),
			Dimensions: []cwtypes.Dimension{auditDim},
			Value:      aws.Float64(float64(result.Count())),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
		},
	}

	byKind := result.CountByKind()
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Issues"),
			Dimensions: []cwtypes.Dimension{auditDim, {Name: aws.String("Kind"), Value: aws.String(k)}},
			Value:      aws.Float64(float64(byKind[domain.IssueKind(k)])),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  ts,
		})
	}

	if err := c.limiter.Wait(ctx, ratelimit.ServiceCloudWatch); err != nil {
		return fmt.Errorf("cloudwatch: %w", err)
	}
	_, err := c.api.PutMetricData(ctx, &cw.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("cloudwatch: put metric data: %w", err)
	}
	return nil
}
