package athena

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	ath "github.com/aws/aws-sdk-go-v2/service/athena"
	athtypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
)

type mockAthenaAPI struct {
	startIn  *ath.StartQueryExecutionInput
	startOut *ath.StartQueryExecutionOutput
	startErr error
	execOuts []*ath.GetQueryExecutionOutput
	execErr  error
	execCall int
	resOut   *ath.GetQueryResultsOutput
	resErr   error
}

func (m *mockAthenaAPI) StartQueryExecution(_ context.Context, in *ath.StartQueryExecutionInput, _ ...func(*ath.Options)) (*ath.StartQueryExecutionOutput, error) {
	m.startIn = in
	return m.startOut, m.startErr
}

func (m *mockAthenaAPI) GetQueryExecution(_ context.Context, _ *ath.GetQueryExecutionInput, _ ...func(*ath.Options)) (*ath.GetQueryExecutionOutput, error) {
	if m.execErr != nil {
		return nil, m.execErr
	}
	idx := m.execCall
	if idx >= len(m.execOuts) {
		idx = len(m.execOuts) - 1
	}
	m.execCall++
	return m.execOuts[idx], nil
}

func (m *mockAthenaAPI) GetQueryResults(_ context.Context, _ *ath.GetQueryResultsInput, _ ...func(*ath.Options)) (*ath.GetQueryResultsOutput, error) {
	return m.resOut, m.resErr
}

func execState(state athtypes.QueryExecutionState) *ath.GetQueryExecutionOutput {
	return &ath.GetQueryExecutionOutput{
		QueryExecution: &athtypes.QueryExecution{
			Status: &athtypes.QueryExecutionStatus{State: state},
		},
	}
}

func payloadRows(values ...string) *ath.GetQueryResultsOutput {
	rows := []athtypes.Row{{Data: []athtypes.Datum{{VarCharValue: aws.String("payload")}}}}
	for _, v := range values {
		rows = append(rows, athtypes.Row{Data: []athtypes.Datum{{VarCharValue: aws.String(v)}}})
	}
	return &ath.GetQueryResultsOutput{ResultSet: &athtypes.ResultSet{Rows: rows}}
}

func TestBuildEventQuery_Valid(t *testing.T) {
	sql, err := buildEventQuery("analytics.raw_events", "event_id", "payload", "evt-2025-11-22:001")
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT payload")
	assert.Contains(t, sql, "FROM analytics.raw_events")
	assert.Contains(t, sql, "WHERE event_id = 'evt-2025-11-22:001'")
	assert.Contains(t, sql, "LIMIT 1")
}

func TestBuildEventQuery_Invalid(t *testing.T) {
	tests := []struct {
		name                         string
		table, idCol, payloadCol, id string
		want                         string
	}{
		{"injection in id", "t", "event_id", "payload", "x'; DROP TABLE t--", "invalid event ID"},
		{"empty id", "t", "event_id", "payload", "", "invalid event ID"},
		{"bad table", "t;x", "event_id", "payload", "e1", "invalid table name"},
		{"bad id column", "t", "id col", "payload", "e1", "invalid id column"},
		{"bad payload column", "t", "event_id", "1payload", "e1", "invalid payload column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildEventQuery(tt.table, tt.idCol, tt.payloadCol, tt.id)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFetchEvent(t *testing.T) {
	mock := &mockAthenaAPI{
		startOut: &ath.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-123")},
		execOuts: []*ath.GetQueryExecutionOutput{execState(athtypes.QueryExecutionStateSucceeded)},
		resOut:   payloadRows(`{"user_id": 123, "action": "login"}`),
	}

	q := NewFromAPI(mock, "analytics", "raw_events", "primary", "s3://output").
		WithLimiter(ratelimit.NewServiceLimiter(ratelimit.ServiceRates{Athena: 100}))
	payload, err := q.FetchEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id": 123, "action": "login"}`, string(payload))

	require.NotNil(t, mock.startIn)
	assert.Equal(t, "analytics", aws.ToString(mock.startIn.QueryExecutionContext.Database))
	assert.Equal(t, "primary", aws.ToString(mock.startIn.WorkGroup))
	assert.Contains(t, aws.ToString(mock.startIn.QueryString), "'evt-1'")
}

func TestFetchEvent_PollsUntilDone(t *testing.T) {
	mock := &mockAthenaAPI{
		startOut: &ath.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-poll")},
		execOuts: []*ath.GetQueryExecutionOutput{
			execState(athtypes.QueryExecutionStateQueued),
			execState(athtypes.QueryExecutionStateRunning),
			execState(athtypes.QueryExecutionStateSucceeded),
		},
		resOut: payloadRows(`{}`),
	}

	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out")
	q.pollEvery = time.Millisecond
	_, err := q.FetchEvent(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Equal(t, 3, mock.execCall)
}

func TestFetchEvent_CustomColumns(t *testing.T) {
	mock := &mockAthenaAPI{
		startOut: &ath.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-cols")},
		execOuts: []*ath.GetQueryExecutionOutput{execState(athtypes.QueryExecutionStateSucceeded)},
		resOut:   payloadRows(`{}`),
	}

	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out").WithColumns("message_id", "body")
	_, err := q.FetchEvent(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Contains(t, aws.ToString(mock.startIn.QueryString), "SELECT body")
	assert.Contains(t, aws.ToString(mock.startIn.QueryString), "WHERE message_id = 'm-1'")
}

func TestFetchEvent_NotFound(t *testing.T) {
	mock := &mockAthenaAPI{
		startOut: &ath.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-empty")},
		execOuts: []*ath.GetQueryExecutionOutput{execState(athtypes.QueryExecutionStateSucceeded)},
		resOut:   payloadRows(),
	}

	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out")
	_, err := q.FetchEvent(context.Background(), "evt-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestFetchEvent_QueryFailed(t *testing.T) {
	failed := execState(athtypes.QueryExecutionStateFailed)
	failed.QueryExecution.Status.StateChangeReason = aws.String("syntax error")
	mock := &mockAthenaAPI{
		startOut: &ath.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-fail")},
		execOuts: []*ath.GetQueryExecutionOutput{failed},
	}

	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out")
	_, err := q.FetchEvent(context.Background(), "evt-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed: syntax error")
}

func TestFetchEvent_StartError(t *testing.T) {
	mock := &mockAthenaAPI{
		startErr: fmt.Errorf("access denied"),
	}

	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out")
	_, err := q.FetchEvent(context.Background(), "evt-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start query")
}

func TestFetchEvent_InvalidIDSkipsAPI(t *testing.T) {
	mock := &mockAthenaAPI{}
	q := NewFromAPI(mock, "db", "tbl", "primary", "s3://out")
	_, err := q.FetchEvent(context.Background(), "bad id")
	require.Error(t, err)
	assert.Nil(t, mock.startIn)
}
