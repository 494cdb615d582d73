// Command eventcheck compares event payloads locally and manages consistency
// audits running on Temporal.
//
// Usage:
//
//	eventcheck compare --a A.json --b B.json [--aliases FILE] [--json]
//	eventcheck batch   --manifest FILE [--aliases FILE] [--concurrency N] [--json]
//	eventcheck example [--json]
//	eventcheck audit   --manifest FILE
//	eventcheck list    [--status S]
//	eventcheck status  --workflow-id WID
//	eventcheck stop    --workflow-id WID --by USER [--reason R]
//
// compare, batch and example exit 0 when every pair is fully consistent,
// 1 when inconsistencies were found and 2 on malformed input or other errors.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.temporal.io/sdk/client"

	"github.com/finops-claw-gang/eventcheck-go/internal/batch"
	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/config"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
	"github.com/finops-claw-gang/eventcheck-go/internal/manifest"
	"github.com/finops-claw-gang/eventcheck-go/internal/report"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/codecs"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/querier"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

const (
	exitConsistent = 0
	exitIssues     = 1
	exitError      = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		return usage(stderr)
	}

	switch args[0] {
	case "compare":
		return cmdCompare(args[1:], stdout, stderr)
	case "batch":
		return cmdBatch(args[1:], stdout, stderr)
	case "example":
		return cmdExample(args[1:], stdout, stderr)
	case "audit":
		return cmdAudit(args[1:], stdout, stderr)
	case "list":
		return cmdList(args[1:], stdout, stderr)
	case "status":
		return cmdStatus(args[1:], stdout, stderr)
	case "stop":
		return cmdStop(args[1:], stdout, stderr)
	default:
		return usage(stderr)
	}
}

func usage(stderr io.Writer) int {
	fmt.Fprintln(stderr, "usage: eventcheck <compare|batch|example|audit|list|status|stop> [flags]")
	return exitError
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// comparatorFrom loads alias rules from path, or returns nil to keep the
// caller's default.
func comparatorFrom(path string) (*compare.Comparator, error) {
	if path == "" {
		return nil, nil
	}
	rules, err := config.LoadAliases(path)
	if err != nil {
		return nil, err
	}
	return compare.New(rules...), nil
}

func cmdCompare(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("compare", stderr)
	pathA := fs.String("a", "", "event A JSON file (required)")
	pathB := fs.String("b", "", "event B JSON file (required)")
	aliases := fs.String("aliases", "", "YAML alias rule file (default: built-in rules)")
	asJSON := fs.Bool("json", false, "print the structured result")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *pathA == "" || *pathB == "" {
		fs.Usage()
		return exitError
	}

	c, err := comparatorFrom(*aliases)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	a, err := os.ReadFile(*pathA)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	b, err := os.ReadFile(*pathB)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return compareAndPrint(c, a, b, *asJSON, stdout, stderr)
}

func cmdExample(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("example", stderr)
	asJSON := fs.Bool("json", false, "print the structured result")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	a, b := eventjson.Example()
	return compareAndPrint(nil, a, b, *asJSON, stdout, stderr)
}

func compareAndPrint(c *compare.Comparator, a, b []byte, asJSON bool, stdout, stderr io.Writer) int {
	if c == nil {
		c = compare.Default()
	}
	recA, recB, err := eventjson.ParsePair(a, b)
	if err != nil {
		if mal, ok := eventjson.AsMalformed(err); ok {
			fmt.Fprintln(stderr, report.ParseErrorText(mal))
		} else {
			fmt.Fprintln(stderr, err)
		}
		return exitError
	}

	result := c.Compare(recA, recB)
	if asJSON {
		if err := printJSON(stdout, map[string]any{
			"result":  result,
			"summary": report.Summarize(result),
		}); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
	} else {
		fmt.Fprintln(stdout, report.Text(result))
	}
	return exitFor(result)
}

func exitFor(result domain.ComparisonResult) int {
	if result.Consistent() {
		return exitConsistent
	}
	return exitIssues
}

func cmdBatch(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("batch", stderr)
	path := fs.String("manifest", "", "batch manifest YAML (required)")
	aliases := fs.String("aliases", "", "YAML alias rule file, overrides the manifest's rules")
	concurrency := fs.Int("concurrency", batch.DefaultLimit, "maximum concurrent comparisons")
	asJSON := fs.Bool("json", false, "print the structured results")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *path == "" {
		fs.Usage()
		return exitError
	}

	m, err := manifest.LoadBatch(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	c, err := comparatorFrom(*aliases)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	if c == nil && m.Aliases != nil {
		c = compare.New(m.Aliases...)
	}

	results, err := batch.CompareAll(context.Background(), c, m.Pairs, *concurrency)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}

	code := exitConsistent
	for _, r := range results {
		switch {
		case r.Failed():
			code = exitError
		case !r.Result.Consistent() && code == exitConsistent:
			code = exitIssues
		}
	}

	if *asJSON {
		out := make([]map[string]any, len(results))
		for i, r := range results {
			entry := map[string]any{"id": r.ID}
			if r.Failed() {
				entry["error"] = r.Err.Error()
			} else {
				entry["result"] = r.Result
			}
			out[i] = entry
		}
		if err := printJSON(stdout, map[string]any{
			"name":    m.Name,
			"results": out,
			"tally":   batch.Tally(results),
		}); err != nil {
			fmt.Fprintln(stderr, err)
			return exitError
		}
		return code
	}

	for _, r := range results {
		if r.Failed() {
			fmt.Fprintf(stdout, "%s: error: %v\n", r.ID, r.Err)
			continue
		}
		fmt.Fprintf(stdout, "%s: %s (%d issues)\n", r.ID, r.Result.Grade, r.Result.Count())
		for _, msg := range r.Result.Messages() {
			fmt.Fprintf(stdout, "  - %s\n", msg)
		}
	}
	return code
}

func dial() (client.Client, error) {
	return client.Dial(client.Options{
		HostPort:      os.Getenv("TEMPORAL_ADDRESS"),
		Namespace:     os.Getenv("TEMPORAL_NAMESPACE"),
		DataConverter: codecs.DataConverter(),
	})
}

// withQuerier dials Temporal, runs fn and closes the client.
func withQuerier(stderr io.Writer, fn func(querier.AuditQuerier) error) int {
	c, err := dial()
	if err != nil {
		fmt.Fprintf(stderr, "unable to create Temporal client: %v\n", err)
		return exitError
	}
	defer c.Close()

	if err := fn(querier.New(c)); err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return exitConsistent
}

func cmdAudit(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("audit", stderr)
	path := fs.String("manifest", "", "audit manifest YAML (required)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *path == "" {
		fs.Usage()
		return exitError
	}

	input, err := manifest.LoadAudit(*path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitError
	}
	return withQuerier(stderr, func(q querier.AuditQuerier) error {
		summary, err := q.StartAudit(context.Background(), input)
		if err != nil {
			return fmt.Errorf("failed to start audit: %w", err)
		}
		fmt.Fprintf(stdout, "started audit %s (run=%s)\n", summary.WorkflowID, summary.RunID)
		return nil
	})
}

func cmdList(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("list", stderr)
	status := fs.String("status", "", "workflow status filter (e.g. Running)")
	pageSize := fs.Int("page-size", 50, "maximum audits to list")
	if err := fs.Parse(args); err != nil {
		return exitError
	}

	return withQuerier(stderr, func(q querier.AuditQuerier) error {
		audits, err := q.ListAudits(context.Background(), querier.ListOptions{
			StatusFilter: *status,
			PageSize:     *pageSize,
		})
		if err != nil {
			return fmt.Errorf("failed to list audits: %w", err)
		}
		return printJSON(stdout, audits)
	})
}

func cmdStatus(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("status", stderr)
	wfID := fs.String("workflow-id", "", "workflow ID (required)")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *wfID == "" {
		fs.Usage()
		return exitError
	}

	return withQuerier(stderr, func(q querier.AuditQuerier) error {
		result, err := q.GetAuditState(context.Background(), *wfID)
		if err != nil {
			return fmt.Errorf("failed to read audit state: %w", err)
		}
		return printJSON(stdout, result)
	})
}

func cmdStop(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("stop", stderr)
	wfID := fs.String("workflow-id", "", "workflow ID (required)")
	by := fs.String("by", "", "identity requesting the stop (required)")
	reason := fs.String("reason", "", "stop reason")
	if err := fs.Parse(args); err != nil {
		return exitError
	}
	if *wfID == "" || *by == "" {
		fs.Usage()
		return exitError
	}

	return withQuerier(stderr, func(q querier.AuditQuerier) error {
		msg, err := q.StopAudit(context.Background(), *wfID, workflows.StopRequest{By: *by, Reason: *reason})
		if err != nil {
			return fmt.Errorf("failed to stop audit: %w", err)
		}
		fmt.Fprintf(stdout, "update result: %s\n", msg)
		return nil
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
