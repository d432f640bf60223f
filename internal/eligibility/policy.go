// internal/eligibility/policy.go
package eligibility

import (
	"errors"
	"fmt"
	"time"
)

var ErrPolicyMisconfigured = errors.New("POLICY_MISCONFIGURED")

// DateWindow bounds program_end_date relative to today, both ends inclusive.
type DateWindow struct {
	PastDays   int `json:"pastDays"`
	FutureDays int `json:"futureDays"`
}

// Policy is the rule table the evaluator reads. Caps and the window are data,
// so a regulatory change is a config change.
type Policy struct {
	DateWindow       DateWindow       `json:"dateWindow"`
	UnemploymentCaps map[OptStage]int `json:"unemploymentCaps"`
	ExtensionDegrees []DegreeLevel    `json:"extensionDegrees"`
	StemGating       bool             `json:"stemGating"`

	// PreCompletionRequiresFutureEnd rejects Pre-Completion applications whose
	// program has already ended. Off by default.
	PreCompletionRequiresFutureEnd bool `json:"preCompletionRequiresFutureEnd"`

	Location *time.Location `json:"-"`
}

func DefaultPolicy() Policy {
	return Policy{
		DateWindow: DateWindow{PastDays: 60, FutureDays: 365},
		UnemploymentCaps: map[OptStage]int{
			StagePreCompletion:  90,
			StagePostCompletion: 90,
			StageStemExtension:  150,
		},
		ExtensionDegrees: []DegreeLevel{DegreeBachelor, DegreeMaster, DegreePhD},
		StemGating:       true,
		Location:         time.UTC,
	}
}

// Validate rejects incomplete rule tables. Every stage needs a cap and the
// date window needs both bounds.
func (p Policy) Validate() error {
	var problems []string
	if p.DateWindow.PastDays <= 0 {
		problems = append(problems, "date window past days must be positive")
	}
	if p.DateWindow.FutureDays <= 0 {
		problems = append(problems, "date window future days must be positive")
	}
	for _, stage := range optStages {
		limit, ok := p.UnemploymentCaps[stage]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing unemployment cap for stage %s", stage))
			continue
		}
		if limit < 0 {
			problems = append(problems, fmt.Sprintf("negative unemployment cap for stage %s", stage))
		}
	}
	for stage := range p.UnemploymentCaps {
		if !stage.Valid() {
			problems = append(problems, fmt.Sprintf("unknown stage %q in unemployment caps", stage))
		}
	}
	if len(p.ExtensionDegrees) == 0 {
		problems = append(problems, "extension degrees must not be empty")
	}
	for _, d := range p.ExtensionDegrees {
		if !d.Valid() {
			problems = append(problems, fmt.Sprintf("unknown degree level %q in extension degrees", d))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrPolicyMisconfigured, problems)
	}
	return nil
}

// Cap returns the unemployment day limit for a stage.
func (p Policy) Cap(stage OptStage) int {
	return p.UnemploymentCaps[stage]
}

func (p Policy) allowsExtension(d DegreeLevel) bool {
	for _, allowed := range p.ExtensionDegrees {
		if allowed == d {
			return true
		}
	}
	return false
}

// clone copies the maps and slices so callers cannot mutate a live engine.
func (p Policy) clone() Policy {
	out := p
	out.UnemploymentCaps = make(map[OptStage]int, len(p.UnemploymentCaps))
	for k, v := range p.UnemploymentCaps {
		out.UnemploymentCaps[k] = v
	}
	out.ExtensionDegrees = append([]DegreeLevel(nil), p.ExtensionDegrees...)
	if out.Location == nil {
		out.Location = time.UTC
	}
	return out
}
