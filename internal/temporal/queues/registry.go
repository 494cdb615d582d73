// Package queues defines per-queue worker configuration for task-queue partitioning.
package queues

import (
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"

	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/activities"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/versioning"
	"github.com/finops-claw-gang/eventcheck-go/internal/temporal/workflows"
)

// QueueConfig holds worker options for a single task queue.
type QueueConfig struct {
	Name    string
	Options worker.Options
	// Workflows reports whether the queue hosts audit workflows.
	Workflows bool
	// Activities lists the activity names polled on this queue.
	Activities []string
}

// DefaultConfigs returns the standard per-queue worker options.
//
//   - QueueAudit: audit workflows plus compare/record/publish activities
//   - QueueFetch: event reads only, tight concurrency to protect Athena quotas
func DefaultConfigs() map[string]QueueConfig {
	return map[string]QueueConfig{
		versioning.QueueAudit: {
			Name:      versioning.QueueAudit,
			Workflows: true,
			Activities: []string{
				activities.CompareEventsName,
				activities.RecordResultName,
				activities.PublishMetricsName,
			},
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     20,
				MaxConcurrentWorkflowTaskExecutionSize: 10,
			},
		},
		versioning.QueueFetch: {
			Name:       versioning.QueueFetch,
			Activities: []string{activities.FetchEventName},
			Options: worker.Options{
				MaxConcurrentActivityExecutionSize:     4,
				MaxConcurrentWorkflowTaskExecutionSize: 1,
			},
		},
	}
}

// Registrar is the part of worker.Worker that Register needs.
type Registrar interface {
	RegisterWorkflow(w interface{})
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the audit workflow and the activities qc lists to r. Each
// activity is registered under the name workflows schedule it by.
func Register(r Registrar, qc QueueConfig, acts *activities.Activities) {
	if qc.Workflows {
		r.RegisterWorkflow(workflows.ConsistencyAuditWorkflow)
	}
	funcs := map[string]interface{}{
		activities.FetchEventName:     acts.FetchEvent,
		activities.CompareEventsName:  acts.CompareEvents,
		activities.RecordResultName:   acts.RecordResult,
		activities.PublishMetricsName: acts.PublishMetrics,
	}
	for _, name := range qc.Activities {
		r.RegisterActivityWithOptions(funcs[name], activity.RegisterOptions{Name: name})
	}
}

// ParseQueues parses a comma-separated queue list (e.g. "audit,fetch")
// into a set of queue names. Accepts both short names ("audit") and
// full names ("eventcheck-audit"). An empty list selects every queue.
func ParseQueues(raw string) ([]string, error) {
	all := []string{versioning.QueueAudit, versioning.QueueFetch}
	if raw == "" {
		return all, nil
	}

	shortNames := map[string]string{
		"audit": versioning.QueueAudit,
		"fetch": versioning.QueueFetch,
	}
	fullNames := map[string]bool{
		versioning.QueueAudit: true,
		versioning.QueueFetch: true,
	}

	seen := make(map[string]bool)
	var result []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if full, ok := shortNames[name]; ok {
			name = full
		}
		if !fullNames[name] {
			return nil, fmt.Errorf("unknown queue %q", name)
		}
		if !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	if len(result) == 0 {
		return all, nil
	}
	return result, nil
}
