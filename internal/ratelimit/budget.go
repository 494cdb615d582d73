package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// ActivityBudget tracks per-scope activity call counts within time windows.
// The worker uses the audit name as the scope.
type ActivityBudget struct {
	mu     sync.Mutex
	counts map[string]*windowCounter

	maxPerWindow int
	windowSize   time.Duration
	now          func() time.Time
}

type windowCounter struct {
	count     int
	windowEnd time.Time
}

// NewActivityBudget creates a budget limiter.
// maxPerWindow limits calls per (scope, activity) within windowSize.
func NewActivityBudget(maxPerWindow int, windowSize time.Duration) *ActivityBudget {
	return &ActivityBudget{
		counts:       make(map[string]*windowCounter),
		maxPerWindow: maxPerWindow,
		windowSize:   windowSize,
		now:          time.Now,
	}
}

func budgetKey(scope, activity string) string {
	return scope + "|" + activity
}

// Check returns an error if the scope has exceeded the budget for the activity.
func (b *ActivityBudget) Check(scope, activity string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := budgetKey(scope, activity)
	wc, ok := b.counts[key]
	if !ok || b.now().After(wc.windowEnd) {
		return nil // no window or expired window
	}
	if wc.count >= b.maxPerWindow {
		return fmt.Errorf("activity budget exceeded: scope %s activity %s (%d/%d in window)",
			scope, activity, wc.count, b.maxPerWindow)
	}
	return nil
}

// Record records an activity call for the scope.
func (b *ActivityBudget) Record(scope, activity string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := budgetKey(scope, activity)
	wc, ok := b.counts[key]
	if !ok || b.now().After(wc.windowEnd) {
		b.counts[key] = &windowCounter{
			count:     1,
			windowEnd: b.now().Add(b.windowSize),
		}
		return
	}
	wc.count++
}
