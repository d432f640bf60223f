// internal/eligibility/outcome.go
package eligibility

// Outcome is either Eligible or Ineligible, never both and never neither.
type Outcome interface {
	IsEligible() bool
	outcome()
}

// Eligible carries the normalized snapshot.
type Eligible struct {
	Data Snapshot
}

func (Eligible) IsEligible() bool { return true }
func (Eligible) outcome()         {}

// Ineligible carries every violation found, already aggregated.
type Ineligible struct {
	Violations []Violation
}

func (Ineligible) IsEligible() bool { return false }
func (Ineligible) outcome()         {}

// Build is the result builder. An empty violation list with a snapshot is
// Eligible; anything else is Ineligible with the list verbatim.
func Build(snapshot *Snapshot, violations []Violation) Outcome {
	if len(violations) > 0 {
		return Ineligible{Violations: violations}
	}
	if snapshot == nil {
		panic("eligibility: no snapshot and no violations")
	}
	return Eligible{Data: *snapshot}
}
