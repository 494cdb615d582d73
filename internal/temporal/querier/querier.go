package querier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/versioning"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

const auditWorkflowType = "ConsistencyAuditWorkflow"

var (
	auditNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)
	statusRe    = regexp.MustCompile(`^[A-Za-z]+$`)
)

// TemporalQuerier implements AuditQuerier using a Temporal client.
type TemporalQuerier struct {
	client client.Client
}

// New creates a TemporalQuerier.
func New(c client.Client) *TemporalQuerier {
	return &TemporalQuerier{client: c}
}

// AuditWorkflowID returns the workflow id used for an audit run.
func AuditWorkflowID(name, suffix string) string {
	return "eventcheck-audit-" + name + "-" + suffix
}

// ListQuery builds the visibility query for ListAudits.
func ListQuery(opts ListOptions) (string, error) {
	clauses := []string{fmt.Sprintf("WorkflowType = %q", auditWorkflowType)}
	if opts.TaskQueue != "" {
		if !auditNameRe.MatchString(opts.TaskQueue) {
			return "", fmt.Errorf("invalid task queue: %q", opts.TaskQueue)
		}
		clauses = append(clauses, fmt.Sprintf("TaskQueue = %q", opts.TaskQueue))
	}
	if opts.StatusFilter != "" {
		if !statusRe.MatchString(opts.StatusFilter) {
			return "", fmt.Errorf("invalid status filter: %q", opts.StatusFilter)
		}
		clauses = append(clauses, fmt.Sprintf("ExecutionStatus = %q", opts.StatusFilter))
	}
	return strings.Join(clauses, " AND "), nil
}

// ListAudits lists audit executions using Temporal's visibility API.
func (q *TemporalQuerier) ListAudits(ctx context.Context, opts ListOptions) ([]WorkflowSummary, error) {
	query, err := ListQuery(opts)
	if err != nil {
		return nil, err
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	resp, err := q.client.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: int32(pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}

	summaries := make([]WorkflowSummary, 0, len(resp.Executions))
	for _, exec := range resp.Executions {
		s := WorkflowSummary{
			WorkflowID: exec.Execution.WorkflowId,
			RunID:      exec.Execution.RunId,
			Status:     exec.Status.String(),
			StartTime:  exec.StartTime.AsTime(),
			TaskQueue:  exec.TaskQueue,
		}
		if exec.CloseTime != nil {
			s.CloseTime = exec.CloseTime.AsTime()
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// GetAuditState returns the audit result.
// For completed audits, extracts the result directly.
// For running audits, uses the state query and reports ReasonRunning.
func (q *TemporalQuerier) GetAuditState(ctx context.Context, workflowID string) (*workflows.AuditResult, error) {
	desc, err := q.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, fmt.Errorf("describe audit: %w", err)
	}

	status := desc.WorkflowExecutionInfo.Status
	switch status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		run := q.client.GetWorkflow(ctx, workflowID, "")
		var result workflows.AuditResult
		if err := run.Get(ctx, &result); err != nil {
			return nil, fmt.Errorf("get audit result: %w", err)
		}
		return &result, nil

	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		resp, err := q.client.QueryWorkflow(ctx, workflowID, "", workflows.QueryNameState)
		if err != nil {
			return nil, fmt.Errorf("query audit state: %w", err)
		}
		var state workflows.AuditState
		if err := resp.Get(&state); err != nil {
			return nil, fmt.Errorf("decode query result: %w", err)
		}
		return &workflows.AuditResult{State: state, Reason: workflows.ReasonRunning}, nil
	}

	return nil, fmt.Errorf("audit %s has status %s, cannot read state", workflowID, status)
}

// DescribeAudit returns detailed information about an audit execution.
func (q *TemporalQuerier) DescribeAudit(ctx context.Context, workflowID string) (*WorkflowDescription, error) {
	desc, err := q.client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return nil, fmt.Errorf("describe audit: %w", err)
	}

	info := desc.WorkflowExecutionInfo
	wd := &WorkflowDescription{
		WorkflowSummary: WorkflowSummary{
			WorkflowID: info.Execution.WorkflowId,
			RunID:      info.Execution.RunId,
			Status:     info.Status.String(),
			StartTime:  info.StartTime.AsTime(),
			TaskQueue:  info.TaskQueue,
		},
	}
	if info.CloseTime != nil {
		wd.CloseTime = info.CloseTime.AsTime()
	}
	return wd, nil
}

// StartAudit validates the input and starts an audit on the audit queue.
func (q *TemporalQuerier) StartAudit(ctx context.Context, input workflows.AuditInput) (*WorkflowSummary, error) {
	if err := ValidateAuditInput(input); err != nil {
		return nil, err
	}
	id := AuditWorkflowID(input.Name, uuid.NewString()[:8])
	run, err := q.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: versioning.QueueAudit,
	}, workflows.ConsistencyAuditWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start audit: %w", err)
	}
	return &WorkflowSummary{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
		Status:     enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING.String(),
		StartTime:  time.Now().UTC(),
		TaskQueue:  versioning.QueueAudit,
	}, nil
}

// StopAudit sends the stop Update to a running audit.
func (q *TemporalQuerier) StopAudit(ctx context.Context, workflowID string, req workflows.StopRequest) (string, error) {
	handle, err := q.client.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   workflows.UpdateNameStop,
		Args:         []any{req},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return "", fmt.Errorf("stop audit: %w", err)
	}

	var result string
	if err := handle.Get(ctx, &result); err != nil {
		return "", fmt.Errorf("get stop result: %w", err)
	}
	return result, nil
}

// ValidateAuditInput checks the audit name, the alias rules and that every
// pair is complete with a unique id.
func ValidateAuditInput(input workflows.AuditInput) error {
	if !auditNameRe.MatchString(input.Name) {
		return fmt.Errorf("invalid audit name: %q", input.Name)
	}
	seen := make(map[string]bool, len(input.Pairs))
	for i, p := range input.Pairs {
		if p.ID == "" || p.A == "" || p.B == "" {
			return fmt.Errorf("pair %d: id, a and b are required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("pair %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	if err := domain.ValidateAliasRules(input.Aliases); err != nil {
		return err
	}
	return nil
}
