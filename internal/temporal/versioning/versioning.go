// Package versioning defines workflow versions and task queue names.
package versioning

const (
	// Workflow versions for determinism tracking.
	ConsistencyAuditV1 = "consistency-audit-v1"

	// Task queues. QueueAudit runs workflows and in-process activities;
	// QueueFetch isolates event reads so Athena concurrency can be capped
	// separately.
	QueueAudit = "eventcheck-audit"
	QueueFetch = "eventcheck-fetch"
)
