// Package batch compares many event pairs concurrently.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/finops-claw-gang/eventcheck-go/internal/compare"
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
	"github.com/finops-claw-gang/eventcheck-go/internal/eventjson"
)

// DefaultLimit bounds concurrent comparisons when the caller passes zero.
const DefaultLimit = 8

// Pair is one raw event pair to compare.
type Pair struct {
	ID string `json:"id,omitempty"`
	A  []byte `json:"-"`
	B  []byte `json:"-"`
}

// PairResult is the outcome for one Pair. Exactly one of Result and Err is meaningful.
type PairResult struct {
	ID     string                   `json:"id,omitempty"`
	Result *domain.ComparisonResult `json:"result,omitempty"`
	Err    error                    `json:"-"`
}

// Failed reports whether the pair could not be compared.
func (r PairResult) Failed() bool { return r.Err != nil }

// CompareAll parses and compares every pair with at most limit running at once.
// Results are returned in input order. A pair that fails to parse yields a
// PairResult with Err set and does not stop the batch; only context
// cancellation aborts.
func CompareAll(ctx context.Context, c *compare.Comparator, pairs []Pair, limit int) ([]PairResult, error) {
	if c == nil {
		c = compare.Default()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]PairResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = comparePair(c, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch: %w", err)
	}
	return results, nil
}

func comparePair(c *compare.Comparator, p Pair) PairResult {
	a, b, err := eventjson.ParsePair(p.A, p.B)
	if err != nil {
		return PairResult{ID: p.ID, Err: err}
	}
	res := c.Compare(a, b)
	return PairResult{ID: p.ID, Result: &res}
}

// Tally counts results by grade; failed pairs are counted under "error".
func Tally(results []PairResult) map[string]int {
	out := make(map[string]int)
	for _, r := range results {
		if r.Failed() {
			out["error"]++
			continue
		}
		out[string(r.Result.Grade)]++
	}
	return out
}
