package querier

import (
	"context"

	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

// AuditQuerier starts consistency audits and reads their state.
// Used by the HTTP API, the MCP server and the CLI.
type AuditQuerier interface {
	ListAudits(ctx context.Context, opts ListOptions) ([]WorkflowSummary, error)
	GetAuditState(ctx context.Context, workflowID string) (*workflows.AuditResult, error)
	DescribeAudit(ctx context.Context, workflowID string) (*WorkflowDescription, error)
	StartAudit(ctx context.Context, input workflows.AuditInput) (*WorkflowSummary, error)
	StopAudit(ctx context.Context, workflowID string, req workflows.StopRequest) (string, error)
}
