package workflows_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
	"github.com/finops-claw-gang/eventcheck-go/internal/testutil"
)

var payloads = map[string]string{
	"web-1":    `{"user_id": 1, "event": "click"}`,
	"mobile-1": `{"userId": 1, "event": "click"}`,
	"web-2":    `{"id": 7, "page": "home"}`,
	"mobile-2": `{"id": 7, "page": "home"}`,
	"broken":   `{"id": 7,`,
}

func fetchFromMap(_ context.Context, in activities.FetchEventInput) (activities.FetchEventOutput, error) {
	p, ok := payloads[in.EventID]
	if !ok {
		return activities.FetchEventOutput{}, fmt.Errorf("event %s not found", in.EventID)
	}
	return activities.FetchEventOutput{Payload: p}, nil
}

type ConsistencyAuditSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ConsistencyAuditSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	// Compare, record and publish run for real against an empty Activities;
	// only FetchEvent is mocked.
	s.env.RegisterActivity(&activities.Activities{})
}

func (s *ConsistencyAuditSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *ConsistencyAuditSuite) result() workflows.AuditResult {
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
	var result workflows.AuditResult
	s.NoError(s.env.GetWorkflowResult(&result))
	return result
}

func (s *ConsistencyAuditSuite) TestNoPairs() {
	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{Name: "empty"})

	result := s.result()
	s.Equal(workflows.ReasonNoPairs, result.Reason)
	s.Equal(0, result.State.Total)
	s.Empty(result.State.Outcomes)
}

func (s *ConsistencyAuditSuite) TestHappyPath() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).Return(fetchFromMap)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name: "nightly",
		Pairs: []workflows.AuditPair{
			{ID: "signup", A: "web-1", B: "mobile-1"},
			{ID: "home", A: "web-2", B: "mobile-2"},
		},
	})

	result := s.result()
	s.Equal(workflows.ReasonCompleted, result.Reason)
	s.Equal(2, result.State.Done)
	s.Equal(map[string]int{"Medium": 1, "High": 1}, result.State.Grades)
	s.Require().Len(result.State.Outcomes, 2)

	first := result.State.Outcomes[0]
	s.Equal("signup", first.ID)
	s.Equal(workflows.PairCompared, first.Status)
	s.Require().NotNil(first.Result)
	s.Equal(domain.GradeMedium, first.Result.Grade)
	s.Equal(domain.IssueNameAlias, first.Result.Issues[0].Kind)

	second := result.State.Outcomes[1]
	s.Equal(domain.GradeHigh, second.Result.Grade)
	s.Empty(second.Errors)
}

func (s *ConsistencyAuditSuite) TestCustomAliasesDisableDefault() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).Return(fetchFromMap)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name:    "no-aliases",
		Pairs:   []workflows.AuditPair{{ID: "signup", A: "web-1", B: "mobile-1"}},
		Aliases: []domain.AliasRule{},
	})

	result := s.result()
	out := result.State.Outcomes[0]
	s.Require().NotNil(out.Result)
	s.Equal(2, out.Result.Count())
	s.Equal(domain.IssueOnlyInA, out.Result.Issues[0].Kind)
	s.Equal(domain.IssueOnlyInB, out.Result.Issues[1].Kind)
}

func (s *ConsistencyAuditSuite) TestFetchFailureContinues() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).Return(fetchFromMap)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name: "partial",
		Pairs: []workflows.AuditPair{
			{ID: "missing", A: "web-1", B: "nope"},
			{ID: "home", A: "web-2", B: "mobile-2"},
		},
	})

	result := s.result()
	s.Equal(workflows.ReasonCompleted, result.Reason)
	s.Equal(1, result.State.Failed)
	s.Equal(2, result.State.Done)

	missing := result.State.Outcomes[0]
	s.Equal(workflows.PairFetchFailed, missing.Status)
	s.Contains(missing.Errors["fetch_b"], "not found")
	s.NotContains(missing.Errors, "fetch_a")
	s.Nil(missing.Result)

	s.Equal(workflows.PairCompared, result.State.Outcomes[1].Status)
}

func (s *ConsistencyAuditSuite) TestMalformedPair() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).Return(fetchFromMap)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name:  "broken",
		Pairs: []workflows.AuditPair{{ID: "bad", A: "web-2", B: "broken"}},
	})

	result := s.result()
	s.Equal(1, result.State.Malformed)
	s.Empty(result.State.Grades)

	out := result.State.Outcomes[0]
	s.Equal(workflows.PairMalformed, out.Status)
	s.Contains(out.Errors, "B")
	s.NotContains(out.Errors, "A")
}

func (s *ConsistencyAuditSuite) TestStateQuery() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).Return(fetchFromMap)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name:  "queried",
		Pairs: []workflows.AuditPair{{ID: "home", A: "web-2", B: "mobile-2"}},
	})
	s.True(s.env.IsWorkflowCompleted())

	val, err := s.env.QueryWorkflow(workflows.QueryNameState)
	s.Require().NoError(err)
	var state workflows.AuditState
	s.Require().NoError(val.Get(&state))
	s.Equal("queried", state.Name)
	s.Equal(1, state.Done)
	s.Equal(1, state.Grades["High"])
	s.Empty(state.Current)
}

func (s *ConsistencyAuditSuite) TestStopAfterCurrentPair() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).After(time.Minute).Return(fetchFromMap)

	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflowNoRejection(workflows.UpdateNameStop, "stop-1", s.T(),
			workflows.StopRequest{By: "oncall", Reason: "source outage"})
	}, 30*time.Second)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name: "stoppable",
		Pairs: []workflows.AuditPair{
			{ID: "signup", A: "web-1", B: "mobile-1"},
			{ID: "home", A: "web-2", B: "mobile-2"},
			{ID: "home-again", A: "web-2", B: "mobile-2"},
		},
	})

	result := s.result()
	s.Equal(workflows.ReasonStopped, result.Reason)
	s.Equal("oncall", result.State.StoppedBy)
	s.Equal(1, result.State.Done)
	s.Equal(3, result.State.Total)
}

func (s *ConsistencyAuditSuite) TestStopRequiresBy() {
	s.env.OnActivity("FetchEvent", testAnyCtx, testAnyInput).After(time.Minute).Return(fetchFromMap)

	var rejected error
	s.env.RegisterDelayedCallback(func() {
		s.env.UpdateWorkflow(workflows.UpdateNameStop, "stop-empty", &testsuite.TestUpdateCallback{
			OnAccept:   func() { s.Fail("stop without 'by' should be rejected") },
			OnReject:   func(err error) { rejected = err },
			OnComplete: func(any, error) {},
		}, workflows.StopRequest{})
	}, 30*time.Second)

	s.env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name:  "unstoppable",
		Pairs: []workflows.AuditPair{{ID: "home", A: "web-2", B: "mobile-2"}},
	})

	result := s.result()
	s.Equal(workflows.ReasonCompleted, result.Reason)
	s.Require().Error(rejected)
	s.Contains(rejected.Error(), "'by' field is required")
}

func TestConsistencyAuditSuite(t *testing.T) {
	suite.Run(t, new(ConsistencyAuditSuite))
}

// TestConsistencyAuditWithFixtures runs every activity for real against the
// fixture events, the memory store and the stub publisher.
func TestConsistencyAuditWithFixtures(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	mem := store.NewMemory(0)
	pub := &testutil.StubPublisher{}
	env.RegisterActivity(&activities.Activities{
		Events:    &testutil.StubEvents{FixturesDir: testutil.FixturesDir()},
		Store:     mem,
		Publisher: pub,
	})

	env.ExecuteWorkflow(workflows.ConsistencyAuditWorkflow, workflows.AuditInput{
		Name: "fixtures",
		Pairs: []workflows.AuditPair{
			{ID: "example", A: "example-a", B: "example-b"},
			{ID: "checkout", A: "checkout-web", B: "checkout-mobile"},
			{ID: "signup", A: "signup-web", B: "signup-mobile"},
			{ID: "truncated", A: "signup-web", B: "truncated"},
		},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.AuditResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, workflows.ReasonCompleted, result.Reason)
	assert.Equal(t, map[string]int{"Low": 1, "Medium": 1, "High": 1}, result.State.Grades)
	assert.Equal(t, 1, result.State.Malformed)

	for _, out := range result.State.Outcomes[:3] {
		require.NotEmpty(t, out.ComparisonID, out.ID)
		_, err := mem.Get(context.Background(), out.ComparisonID)
		assert.NoError(t, err, out.ID)
	}
	assert.Equal(t, 3, mem.Len())
	require.Len(t, pub.Calls(), 3)
	assert.Equal(t, "fixtures", pub.Calls()[0].Audit)
}
