// internal/eligibility/aggregate.go
package eligibility

import "sort"

// Aggregate merges structural and business violations into one list ordered
// by field declaration order. The sort is stable, so violations on the same
// field keep the order they were produced in. Fields outside the snapshot,
// such as FieldGeneral, sort first. Neither input is modified.
func Aggregate(structural, business []Violation) []Violation {
	out := make([]Violation, 0, len(structural)+len(business))
	out = append(out, structural...)
	out = append(out, business...)

	sort.SliceStable(out, func(i, j int) bool {
		return fieldRank(out[i].Field) < fieldRank(out[j].Field)
	})
	return out
}

func fieldRank(field string) int {
	for i, f := range fieldOrder {
		if f == field {
			return i
		}
	}
	return -1
}
