// internal/eligibility/rules.go
package eligibility

import (
	"fmt"
	"time"
)

// rule inspects a valid snapshot and reports at most one violation. Rules
// never see each other's results and never modify the snapshot.
type rule struct {
	name  string
	check func(p *Policy, s Snapshot, today time.Time) *Violation
}

// ruleTable is evaluated in order; the order is also the tie-break within a
// field when violations are aggregated.
var ruleTable = []rule{
	{name: "date-window", check: checkDateWindow},
	{name: "pre-completion-future-end", check: checkPreCompletionFutureEnd},
	{name: "stem-gating", check: checkStemGating},
	{name: "extension-degree", check: checkExtensionDegree},
	{name: "unemployment-cap", check: checkUnemploymentCap},
}

// RuleNames lists the rules in evaluation order.
func RuleNames() []string {
	names := make([]string, len(ruleTable))
	for i, r := range ruleTable {
		names[i] = r.name
	}
	return names
}

// evaluate runs every rule against the snapshot and collects all violations.
func evaluate(p *Policy, s Snapshot, today time.Time) []Violation {
	var violations []Violation
	for _, r := range ruleTable {
		if v := r.check(p, s, today); v != nil {
			violations = append(violations, *v)
		}
	}
	return violations
}

func checkDateWindow(p *Policy, s Snapshot, today time.Time) *Violation {
	earliest := today.AddDate(0, 0, -p.DateWindow.PastDays)
	latest := today.AddDate(0, 0, p.DateWindow.FutureDays)

	switch {
	case s.ProgramEndDate.After(latest):
		return &Violation{
			Field:   FieldProgramEndDate,
			Code:    DateOutOfRange,
			Message: fmt.Sprintf("Program end date is more than %s in the future. Please confirm.", describeDays(p.DateWindow.FutureDays)),
		}
	case s.ProgramEndDate.Before(earliest):
		return &Violation{
			Field:   FieldProgramEndDate,
			Code:    DateOutOfRange,
			Message: fmt.Sprintf("Program end date is more than %s in the past. Please confirm.", describeDays(p.DateWindow.PastDays)),
		}
	}
	return nil
}

func checkPreCompletionFutureEnd(p *Policy, s Snapshot, today time.Time) *Violation {
	if !p.PreCompletionRequiresFutureEnd || s.OptStage != StagePreCompletion {
		return nil
	}
	if s.ProgramEndDate.After(today) {
		return nil
	}
	return &Violation{
		Field:   FieldProgramEndDate,
		Code:    ProgramAlreadyEnded,
		Message: "Pre-Completion OPT requires a program end date in the future.",
	}
}

func checkStemGating(p *Policy, s Snapshot, _ time.Time) *Violation {
	if !p.StemGating || s.OptStage != StageStemExtension || s.IsStemDegree {
		return nil
	}
	return &Violation{
		Field:   FieldIsStemDegree,
		Code:    StemDegreeRequired,
		Message: "You cannot apply for STEM Extension without a STEM degree.",
	}
}

func checkExtensionDegree(p *Policy, s Snapshot, _ time.Time) *Violation {
	if s.OptStage != StageStemExtension || p.allowsExtension(s.DegreeLevel) {
		return nil
	}
	return &Violation{
		Field:   FieldDegreeLevel,
		Code:    DegreeIneligibleForExtension,
		Message: fmt.Sprintf("A %s degree is not eligible for the STEM Extension.", s.DegreeLevel),
	}
}

func checkUnemploymentCap(p *Policy, s Snapshot, _ time.Time) *Violation {
	limit := p.Cap(s.OptStage)
	if s.UnemploymentDaysUsed <= limit {
		return nil
	}
	return &Violation{
		Field: FieldUnemploymentDaysUsed,
		Code:  UnemploymentCapExceeded,
		Message: fmt.Sprintf("Unemployment days (%d) exceed the %d-day limit for %s.",
			s.UnemploymentDaysUsed, limit, s.OptStage.DisplayName()),
	}
}

// describeDays renders the window bounds the way applicants read them.
func describeDays(days int) string {
	switch days {
	case 365:
		return "1 year"
	case 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
