// Package compare reconciles the field sets of two flat event records and
// reports naming, presence and type discrepancies with a consistency grade.
//
// Issues are emitted in a fixed order: alias issues in rule order, then type
// mismatches on shared fields in event A's key order, then fields only in
// event A, then fields only in event B.
package compare
