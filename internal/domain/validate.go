package domain

import "fmt"

// ValidateAliasRule checks that a rule names two distinct, non-empty fields.
func ValidateAliasRule(r AliasRule) error {
	if r.A == "" {
		return fmt.Errorf("alias field a is required")
	}
	if r.B == "" {
		return fmt.Errorf("alias field b is required")
	}
	if r.A == r.B {
		return fmt.Errorf("alias fields must differ, got %q twice", r.A)
	}
	return nil
}

// ValidateAliasRules checks each rule and rejects duplicate pairs.
func ValidateAliasRules(rules []AliasRule) error {
	seen := make(map[[2]string]bool, len(rules))
	for i, r := range rules {
		if err := ValidateAliasRule(r); err != nil {
			return fmt.Errorf("alias rule %d: %w", i, err)
		}
		key := [2]string{r.A, r.B}
		if seen[key] {
			return fmt.Errorf("alias rule %d: duplicate pair %s/%s", i, r.A, r.B)
		}
		seen[key] = true
	}
	return nil
}

// ValidateIssue checks that the fields required by the issue kind are set.
func ValidateIssue(is Issue) error {
	if !is.Kind.Valid() {
		return fmt.Errorf("invalid issue kind: %q", is.Kind)
	}
	if is.Field == "" {
		return fmt.Errorf("field is required")
	}
	switch is.Kind {
	case IssueNameAlias:
		if is.FieldB == "" {
			return fmt.Errorf("field_b is required for %s", is.Kind)
		}
	case IssueTypeMismatch:
		if !is.TypeA.Valid() || !is.TypeB.Valid() {
			return fmt.Errorf("invalid type categories: %q vs %q", is.TypeA, is.TypeB)
		}
		if is.TypeA == is.TypeB {
			return fmt.Errorf("type mismatch with equal types %q", is.TypeA)
		}
	}
	return nil
}

// ValidateComparisonResult checks every issue and that the grade matches the issue count.
func ValidateComparisonResult(r ComparisonResult) error {
	for i, is := range r.Issues {
		if err := ValidateIssue(is); err != nil {
			return fmt.Errorf("issue %d: %w", i, err)
		}
	}
	if !r.Grade.Valid() {
		return fmt.Errorf("invalid grade: %q", r.Grade)
	}
	if want := GradeFor(len(r.Issues)); r.Grade != want {
		return fmt.Errorf("grade %s does not match %d issues (want %s)", r.Grade, len(r.Issues), want)
	}
	return nil
}
