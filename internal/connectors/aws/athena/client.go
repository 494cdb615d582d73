// Package athena wraps the AWS Athena API to read raw event payloads by id
// from an events table.
package athena

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ath "github.com/aws/aws-sdk-go-v2/service/athena"
	athtypes "github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
)

const (
	pollInterval = 2 * time.Second
	pollTimeout  = 120 * time.Second

	// Default column names of the events table.
	DefaultIDColumn      = "event_id"
	DefaultPayloadColumn = "payload"
)

// ErrEventNotFound is returned when the table has no row for the event id.
var ErrEventNotFound = errors.New("athena: event not found")

// API is the subset of the Athena client used by this package.
type API interface {
	StartQueryExecution(ctx context.Context, params *ath.StartQueryExecutionInput, optFns ...func(*ath.Options)) (*ath.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *ath.GetQueryExecutionInput, optFns ...func(*ath.Options)) (*ath.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *ath.GetQueryResultsInput, optFns ...func(*ath.Options)) (*ath.GetQueryResultsOutput, error)
}

// Querier fetches event payloads via Athena.
type Querier struct {
	api           API
	database      string
	table         string
	workgroup     string
	outputLoc     string
	idColumn      string
	payloadColumn string
	limiter       *ratelimit.ServiceLimiter
	pollEvery     time.Duration
}

// New creates a Querier from an AWS config and events table configuration.
func New(cfg aws.Config, database, table, workgroup, outputLoc string) *Querier {
	return NewFromAPI(ath.NewFromConfig(cfg), database, table, workgroup, outputLoc)
}

// NewFromAPI creates a Querier from an explicit API implementation (for testing).
func NewFromAPI(api API, database, table, workgroup, outputLoc string) *Querier {
	return &Querier{
		api:           api,
		database:      database,
		table:         table,
		workgroup:     workgroup,
		outputLoc:     outputLoc,
		idColumn:      DefaultIDColumn,
		payloadColumn: DefaultPayloadColumn,
		pollEvery:     pollInterval,
	}
}

// WithColumns overrides the id and payload column names.
func (q *Querier) WithColumns(idColumn, payloadColumn string) *Querier {
	q.idColumn = idColumn
	q.payloadColumn = payloadColumn
	return q
}

// WithLimiter throttles StartQueryExecution calls through l.
func (q *Querier) WithLimiter(l *ratelimit.ServiceLimiter) *Querier {
	q.limiter = l
	return q
}

// FetchEvent returns the raw JSON payload stored for eventID.
func (q *Querier) FetchEvent(ctx context.Context, eventID string) ([]byte, error) {
	sql, err := buildEventQuery(q.table, q.idColumn, q.payloadColumn, eventID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	if err := q.limiter.Wait(ctx, ratelimit.ServiceAthena); err != nil {
		return nil, fmt.Errorf("athena: %w", err)
	}

	startOut, err := q.api.StartQueryExecution(ctx, &ath.StartQueryExecutionInput{
		QueryString: aws.String(sql),
		QueryExecutionContext: &athtypes.QueryExecutionContext{
			Database: aws.String(q.database),
		},
		WorkGroup: aws.String(q.workgroup),
		ResultConfiguration: &athtypes.ResultConfiguration{
			OutputLocation: aws.String(q.outputLoc),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("athena: start query: %w", err)
	}

	queryID := startOut.QueryExecutionId

	// Poll until complete, respecting context cancellation.
	ticker := time.NewTicker(q.pollEvery)
	defer ticker.Stop()

	for {
		execOut, err := q.api.GetQueryExecution(ctx, &ath.GetQueryExecutionInput{
			QueryExecutionId: queryID,
		})
		if err != nil {
			return nil, fmt.Errorf("athena: get query execution: %w", err)
		}

		state := execOut.QueryExecution.Status.State
		switch state {
		case athtypes.QueryExecutionStateSucceeded:
			// Proceed to get results.
		case athtypes.QueryExecutionStateFailed:
			reason := ""
			if execOut.QueryExecution.Status.StateChangeReason != nil {
				reason = *execOut.QueryExecution.Status.StateChangeReason
			}
			return nil, fmt.Errorf("athena: query failed: %s", reason)
		case athtypes.QueryExecutionStateCancelled:
			return nil, fmt.Errorf("athena: query was cancelled")
		default:
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("athena: query %s: %w", aws.ToString(queryID), ctx.Err())
			case <-ticker.C:
				continue
			}
		}

		resultsOut, err := q.api.GetQueryResults(ctx, &ath.GetQueryResultsInput{
			QueryExecutionId: queryID,
		})
		if err != nil {
			return nil, fmt.Errorf("athena: get query results: %w", err)
		}

		payload, ok := firstPayload(resultsOut)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return payload, nil
	}
}

// firstPayload returns the single column of the first data row.
// The first row of an Athena ResultSet is the header.
func firstPayload(out *ath.GetQueryResultsOutput) ([]byte, bool) {
	if out == nil || out.ResultSet == nil || len(out.ResultSet.Rows) < 2 {
		return nil, false
	}
	row := out.ResultSet.Rows[1]
	if len(row.Data) == 0 || row.Data[0].VarCharValue == nil {
		return nil, false
	}
	return []byte(*row.Data[0].VarCharValue), true
}
