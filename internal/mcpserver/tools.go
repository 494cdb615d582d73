// Package mcpserver exposes event comparison and consistency audits as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/finops-claw-gang/eventcheck-go/internal/batch"
	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
	"github.com/finops-claw-gang/eventcheck-go/internal/report"
	"github.com/finops-claw-gang/eventcheck-go/internal/store"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/versioning"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

// Deps are the backends behind the tools. Store and Querier are optional;
// their tools are only registered when set.
type Deps struct {
	Comparator *compare.Comparator // nil = compare.Default()
	BatchLimit int
	Store      store.Store
	Querier    querier.AuditQuerier
}

// RegisterTools registers the comparison tools, plus the stored-result and
// audit tools when their backends are configured.
func RegisterTools(server *mcp.Server, deps Deps) {
	if deps.Comparator == nil {
		deps.Comparator = compare.Default()
	}

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "compare_events",
			Description: "Compare two flat JSON events and report naming, presence and type inconsistencies with a consistency grade",
		},
		compareEventsHandler(deps),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "compare_batch",
			Description: "Compare many event pairs at once; malformed pairs are reported per pair",
		},
		compareBatchHandler(deps),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_example_events",
			Description: "Get the bundled example event pair (a login seen by two client versions)",
		},
		getExampleHandler(),
	)

	if deps.Store != nil {
		mcp.AddTool(server,
			&mcp.Tool{
				Name:        "get_comparison",
				Description: "Get a stored comparison by id",
			},
			getComparisonHandler(deps.Store),
		)
	}

	if deps.Querier != nil {
		registerAuditTools(server, deps.Querier)
	}
}

func registerAuditTools(server *mcp.Server, q querier.AuditQuerier) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "list_audits",
			Description: "List consistency audit workflows with status",
		},
		listAuditsHandler(q),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "get_audit_state",
			Description: "Get progress, grades and per-pair outcomes of a consistency audit",
		},
		getAuditStateHandler(q),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "start_audit",
			Description: "Start a consistency audit over pairs of stored event ids",
		},
		startAuditHandler(q),
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "stop_audit",
			Description: "Stop a running audit after its current pair",
		},
		stopAuditHandler(q),
	)
}

type compareInput struct {
	A       string             `json:"a" jsonschema:"event A as JSON object text"`
	B       string             `json:"b" jsonschema:"event B as JSON object text"`
	Aliases []domain.AliasRule `json:"aliases,omitempty" jsonschema:"alias rules; omit for the default user_id/userId rule, pass [] to disable"`
}

type compareOutput struct {
	Result  domain.ComparisonResult `json:"result"`
	Summary report.Summary          `json:"summary"`
	Report  string                  `json:"report"`
}

func compareEventsHandler(deps Deps) mcp.ToolHandlerFor[compareInput, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input compareInput) (*mcp.CallToolResult, any, error) {
		c, err := comparatorFor(deps.Comparator, input.Aliases)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}

		a, b, err := eventjson.ParsePair([]byte(input.A), []byte(input.B))
		if err != nil {
			if mal, ok := eventjson.AsMalformed(err); ok {
				return errorResult(report.ParseErrorText(mal)), nil, nil
			}
			return nil, nil, fmt.Errorf("compare_events: %w", err)
		}

		result := c.Compare(a, b)
		return textResult(compareOutput{
			Result:  result,
			Summary: report.Summarize(result),
			Report:  report.Text(result),
		})
	}
}

type batchPairInput struct {
	ID string `json:"id,omitempty"`
	A  string `json:"a"`
	B  string `json:"b"`
}

type batchInput struct {
	Pairs   []batchPairInput   `json:"pairs"`
	Aliases []domain.AliasRule `json:"aliases,omitempty"`
}

type batchItem struct {
	ID     string                   `json:"id,omitempty"`
	Result *domain.ComparisonResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func compareBatchHandler(deps Deps) mcp.ToolHandlerFor[batchInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input batchInput) (*mcp.CallToolResult, any, error) {
		if len(input.Pairs) == 0 {
			return errorResult("at least one pair is required"), nil, nil
		}
		c, err := comparatorFor(deps.Comparator, input.Aliases)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}

		pairs := make([]batch.Pair, len(input.Pairs))
		for i, p := range input.Pairs {
			pairs[i] = batch.Pair{ID: p.ID, A: []byte(p.A), B: []byte(p.B)}
		}
		results, err := batch.CompareAll(ctx, c, pairs, deps.BatchLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("compare_batch: %w", err)
		}

		items := make([]batchItem, len(results))
		for i, r := range results {
			items[i] = batchItem{ID: r.ID, Result: r.Result}
			if r.Failed() {
				items[i].Error = r.Err.Error()
			}
		}
		return textResult(map[string]any{
			"results": items,
			"tally":   batch.Tally(results),
		})
	}
}

func getExampleHandler() mcp.ToolHandlerFor[struct{}, any] {
	return func(context.Context, *mcp.CallToolRequest, struct{}) (*mcp.CallToolResult, any, error) {
		return textResult(map[string]string{"a": eventjson.ExampleA, "b": eventjson.ExampleB})
	}
}

type idInput struct {
	ID string `json:"id"`
}

func getComparisonHandler(s store.Store) mcp.ToolHandlerFor[idInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input idInput) (*mcp.CallToolResult, any, error) {
		if input.ID == "" {
			return errorResult("id is required"), nil, nil
		}
		entry, err := s.Get(ctx, input.ID)
		if errors.Is(err, store.ErrNotFound) {
			return errorResult("comparison not found: " + input.ID), nil, nil
		}
		if err != nil {
			return nil, nil, fmt.Errorf("get_comparison: %w", err)
		}
		return textResult(entry)
	}
}

type listAuditsInput struct {
	Status string `json:"status,omitempty"`
}

func listAuditsHandler(q querier.AuditQuerier) mcp.ToolHandlerFor[listAuditsInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input listAuditsInput) (*mcp.CallToolResult, any, error) {
		opts := querier.ListOptions{TaskQueue: versioning.QueueAudit, StatusFilter: input.Status}

		audits, err := q.ListAudits(ctx, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("list_audits: %w", err)
		}
		return textResult(audits)
	}
}

type workflowIDInput struct {
	WorkflowID string `json:"workflow_id"`
}

func getAuditStateHandler(q querier.AuditQuerier) mcp.ToolHandlerFor[workflowIDInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input workflowIDInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" {
			return errorResult("workflow_id is required"), nil, nil
		}

		result, err := q.GetAuditState(ctx, input.WorkflowID)
		if err != nil {
			return nil, nil, fmt.Errorf("get_audit_state: %w", err)
		}
		return textResult(result)
	}
}

// startAuditInput mirrors workflows.AuditInput with optional fields the tool
// schema can leave out. A present but empty aliases list disables aliasing.
type startAuditInput struct {
	Name        string                `json:"name"`
	Pairs       []workflows.AuditPair `json:"pairs"`
	Source      *activities.SourceRef `json:"source,omitempty"`
	Aliases     *[]domain.AliasRule   `json:"aliases,omitempty"`
	SkipRecord  bool                  `json:"skip_record,omitempty"`
	SkipPublish bool                  `json:"skip_publish,omitempty"`
}

func (in startAuditInput) auditInput() workflows.AuditInput {
	out := workflows.AuditInput{
		Name:        in.Name,
		Pairs:       in.Pairs,
		SkipRecord:  in.SkipRecord,
		SkipPublish: in.SkipPublish,
	}
	if in.Source != nil {
		out.Source = *in.Source
	}
	if in.Aliases != nil {
		out.Aliases = *in.Aliases
		if out.Aliases == nil {
			out.Aliases = []domain.AliasRule{}
		}
	}
	return out
}

func startAuditHandler(q querier.AuditQuerier) mcp.ToolHandlerFor[startAuditInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args startAuditInput) (*mcp.CallToolResult, any, error) {
		input := args.auditInput()
		if err := querier.ValidateAuditInput(input); err != nil {
			return errorResult(err.Error()), nil, nil
		}

		summary, err := q.StartAudit(ctx, input)
		if err != nil {
			return nil, nil, fmt.Errorf("start_audit: %w", err)
		}
		return textResult(summary)
	}
}

type stopInput struct {
	WorkflowID string `json:"workflow_id"`
	By         string `json:"by"`
	Reason     string `json:"reason,omitempty"`
}

func stopAuditHandler(q querier.AuditQuerier) mcp.ToolHandlerFor[stopInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input stopInput) (*mcp.CallToolResult, any, error) {
		if input.WorkflowID == "" || input.By == "" {
			return errorResult("workflow_id and by are required"), nil, nil
		}

		result, err := q.StopAudit(ctx, input.WorkflowID, workflows.StopRequest{By: input.By, Reason: input.Reason})
		if err != nil {
			return nil, nil, fmt.Errorf("stop_audit: %w", err)
		}
		return textResult(map[string]string{"result": result})
	}
}

func comparatorFor(fallback *compare.Comparator, aliases []domain.AliasRule) (*compare.Comparator, error) {
	if aliases == nil {
		return fallback, nil
	}
	if err := domain.ValidateAliasRules(aliases); err != nil {
		return nil, err
	}
	return compare.New(aliases...), nil
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshal result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
