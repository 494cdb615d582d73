package compare

import (
	"github.com/finops-claw-gang/eventcheck-go/internal/domain"
)

// Comparator compares event records under a fixed list of alias rules.
// A Comparator is immutable and safe for concurrent use.
type Comparator struct {
	aliases []domain.AliasRule
}

// New creates a Comparator with the given alias rules, applied in order.
// With no rules, only exact field names are matched.
func New(aliases ...domain.AliasRule) *Comparator {
	rules := make([]domain.AliasRule, len(aliases))
	copy(rules, aliases)
	return &Comparator{aliases: rules}
}

// Default returns a Comparator with the built-in user_id/userId rule.
func Default() *Comparator {
	return New(domain.DefaultAliasRules()...)
}

// Aliases returns a copy of the configured alias rules.
func (c *Comparator) Aliases() []domain.AliasRule {
	out := make([]domain.AliasRule, len(c.aliases))
	copy(out, c.aliases)
	return out
}

// Compare compares a and b with the default alias rules.
func Compare(a, b domain.Record) domain.ComparisonResult {
	return Default().Compare(a, b)
}

// Compare reports the discrepancies between a and b. It never fails and
// does not modify its inputs.
func (c *Comparator) Compare(a, b domain.Record) domain.ComparisonResult {
	keysA := a.Keys()
	keysB := b.Keys()
	onlyA := newKeySet(keysA)
	onlyB := newKeySet(keysB)

	var issues []domain.Issue

	for _, rule := range c.aliases {
		if !a.Has(rule.A) || !b.Has(rule.B) {
			continue
		}
		issues = append(issues, domain.NameAliasIssue(rule))
		onlyA.remove(rule.A)
		onlyB.remove(rule.B)

		kindA, kindB := a.KindOf(rule.A), b.KindOf(rule.B)
		if kindA != kindB {
			issues = append(issues, domain.AliasTypeIssue(rule, kindA, kindB))
		}
	}

	for _, key := range keysA {
		if !b.Has(key) {
			continue
		}
		onlyA.remove(key)
		onlyB.remove(key)

		kindA, kindB := a.KindOf(key), b.KindOf(key)
		if kindA != kindB {
			issues = append(issues, domain.TypeIssue(key, kindA, kindB))
		}
	}

	for _, key := range onlyA.ordered() {
		issues = append(issues, domain.OnlyInAIssue(key))
	}
	for _, key := range onlyB.ordered() {
		issues = append(issues, domain.OnlyInBIssue(key))
	}

	return domain.NewComparisonResult(issues)
}

// keySet is an insertion-ordered string set.
type keySet struct {
	order   []string
	present map[string]bool
}

func newKeySet(keys []string) *keySet {
	s := &keySet{order: keys, present: make(map[string]bool, len(keys))}
	for _, k := range keys {
		s.present[k] = true
	}
	return s
}

func (s *keySet) remove(key string) {
	delete(s.present, key)
}

func (s *keySet) ordered() []string {
	out := make([]string, 0, len(s.present))
	for _, k := range s.order {
		if s.present[k] {
			out = append(out, k)
		}
	}
	return out
}
