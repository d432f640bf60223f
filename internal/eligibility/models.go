// internal/eligibility/models.go
package eligibility

import (
	"encoding/json"
	"time"
)

// DateLayout is the wire format of program_end_date.
const DateLayout = "2006-01-02"

// Wire names of the snapshot attributes, in declaration order.
const (
	FieldDegreeLevel          = "degree_level"
	FieldIsStemDegree         = "is_stem_degree"
	FieldProgramEndDate       = "program_end_date"
	FieldOptStage             = "opt_stage"
	FieldUnemploymentDaysUsed = "unemployment_days_used"

	// FieldGeneral attributes a violation to the payload as a whole.
	FieldGeneral = "general"
)

var fieldOrder = []string{
	FieldDegreeLevel,
	FieldIsStemDegree,
	FieldProgramEndDate,
	FieldOptStage,
	FieldUnemploymentDaysUsed,
}

// Fields returns the attribute names in declaration order.
func Fields() []string {
	out := make([]string, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

type DegreeLevel string

const (
	DegreeBachelor DegreeLevel = "Bachelor"
	DegreeMaster   DegreeLevel = "Master"
	DegreePhD      DegreeLevel = "PhD"
)

var degreeLevels = []DegreeLevel{DegreeBachelor, DegreeMaster, DegreePhD}

func DegreeLevels() []DegreeLevel {
	return append([]DegreeLevel(nil), degreeLevels...)
}

// ParseDegreeLevel accepts the exact, case-sensitive wire token.
func ParseDegreeLevel(s string) (DegreeLevel, bool) {
	for _, d := range degreeLevels {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

func (d DegreeLevel) Valid() bool {
	_, ok := ParseDegreeLevel(string(d))
	return ok
}

type OptStage string

const (
	StagePreCompletion  OptStage = "Pre"
	StagePostCompletion OptStage = "Post"
	StageStemExtension  OptStage = "STEM"
)

var optStages = []OptStage{StagePreCompletion, StagePostCompletion, StageStemExtension}

func OptStages() []OptStage {
	return append([]OptStage(nil), optStages...)
}

// ParseOptStage accepts the exact, case-sensitive wire token.
func ParseOptStage(s string) (OptStage, bool) {
	for _, st := range optStages {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

func (s OptStage) Valid() bool {
	_, ok := ParseOptStage(string(s))
	return ok
}

// DisplayName is the label used in human-readable messages.
func (s OptStage) DisplayName() string {
	switch s {
	case StagePreCompletion:
		return "Pre-Completion OPT"
	case StagePostCompletion:
		return "Post-Completion OPT"
	case StageStemExtension:
		return "STEM Extension"
	default:
		return string(s)
	}
}

// Snapshot is the normalized application. It is built once by the parser
// and never mutated afterwards.
type Snapshot struct {
	DegreeLevel          DegreeLevel
	IsStemDegree         bool
	ProgramEndDate       time.Time
	OptStage             OptStage
	UnemploymentDaysUsed int
}

type snapshotJSON struct {
	DegreeLevel          DegreeLevel `json:"degree_level"`
	IsStemDegree         bool        `json:"is_stem_degree"`
	ProgramEndDate       string      `json:"program_end_date"`
	OptStage             OptStage    `json:"opt_stage"`
	UnemploymentDaysUsed int         `json:"unemployment_days_used"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		DegreeLevel:          s.DegreeLevel,
		IsStemDegree:         s.IsStemDegree,
		ProgramEndDate:       FormatDate(s.ProgramEndDate),
		OptStage:             s.OptStage,
		UnemploymentDaysUsed: s.UnemploymentDaysUsed,
	})
}

// Raw renders the snapshot back into the loosely-typed wire form the parser accepts.
func (s Snapshot) Raw() map[string]interface{} {
	return map[string]interface{}{
		FieldDegreeLevel:          string(s.DegreeLevel),
		FieldIsStemDegree:         s.IsStemDegree,
		FieldProgramEndDate:       FormatDate(s.ProgramEndDate),
		FieldOptStage:             string(s.OptStage),
		FieldUnemploymentDaysUsed: s.UnemploymentDaysUsed,
	}
}

// FormatDate renders a civil date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// civilDate drops the time of day, keeping the calendar date as seen in loc.
func civilDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
