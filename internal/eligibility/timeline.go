// internal/eligibility/timeline.go
package eligibility

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	filingLeadDays      = 90
	postFilingGraceDays = 60
	gracePeriodDays     = 60
	sixMonthReportDays  = 180
	yearReportDays      = 360
)

// Timeline lists the filing and reporting dates for an OPT stage. The
// reporting dates are only known when the OPT start date is.
type Timeline struct {
	Stage                OptStage
	EarliestFiling       time.Time
	ProgramEnd           time.Time
	LatestFiling         time.Time
	GracePeriodEnd       time.Time
	SixMonthReporting    *time.Time
	TwelveMonthReporting *time.Time
}

type TimelineEvent struct {
	Date  time.Time
	Label string
}

func (ev TimelineEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"date":  FormatDate(ev.Date),
		"label": ev.Label,
	})
}

// PostCompletionTimeline projects filing dates for post-completion OPT:
// filing opens 90 days before the program ends and closes 60 days after.
func PostCompletionTimeline(programEnd time.Time) Timeline {
	return Timeline{
		Stage:          StagePostCompletion,
		EarliestFiling: programEnd.AddDate(0, 0, -filingLeadDays),
		ProgramEnd:     programEnd,
		LatestFiling:   programEnd.AddDate(0, 0, postFilingGraceDays),
		GracePeriodEnd: programEnd.AddDate(0, 0, gracePeriodDays),
	}
}

// StemExtensionTimeline projects filing dates for the STEM extension, anchored
// on the current OPT end date. The extension must be filed before that date.
func StemExtensionTimeline(currentOptEnd time.Time, optStart *time.Time) Timeline {
	t := Timeline{
		Stage:          StageStemExtension,
		EarliestFiling: currentOptEnd.AddDate(0, 0, -filingLeadDays),
		ProgramEnd:     currentOptEnd,
		LatestFiling:   currentOptEnd,
		GracePeriodEnd: currentOptEnd.AddDate(0, 0, gracePeriodDays),
	}
	if optStart != nil {
		six := optStart.AddDate(0, 0, sixMonthReportDays)
		twelve := optStart.AddDate(0, 0, yearReportDays)
		t.SixMonthReporting = &six
		t.TwelveMonthReporting = &twelve
	}
	return t
}

// UnemploymentLimitDate is the last day before the allowance runs out when
// no employment is reported from start onwards.
func UnemploymentLimitDate(start time.Time, maxDays int) time.Time {
	return start.AddDate(0, 0, maxDays)
}

// TimelineFor returns the projection for a validated snapshot. Only
// Post-completion is anchored on the program end date. Pre-completion has no
// fixed filing window, and the STEM window hangs off the current OPT end date,
// which a snapshot does not carry; both get nil.
func TimelineFor(s Snapshot) *Timeline {
	if s.OptStage != StagePostCompletion {
		return nil
	}
	t := PostCompletionTimeline(s.ProgramEndDate)
	return &t
}

// Events returns the timeline's dates sorted ascending.
func (t Timeline) Events() []TimelineEvent {
	events := []TimelineEvent{
		{Date: t.EarliestFiling, Label: "Earliest Filing Date"},
		{Date: t.ProgramEnd, Label: "Program End Date"},
		{Date: t.LatestFiling, Label: "Latest Filing Date"},
		{Date: t.GracePeriodEnd, Label: "Grace Period End Date"},
	}
	if t.SixMonthReporting != nil {
		events = append(events, TimelineEvent{Date: *t.SixMonthReporting, Label: "6-Month Reporting Due"})
	}
	if t.TwelveMonthReporting != nil {
		events = append(events, TimelineEvent{Date: *t.TwelveMonthReporting, Label: "12-Month Reporting Due"})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Date.Before(events[j].Date)
	})
	return events
}

type timelineJSON struct {
	Stage                OptStage        `json:"stage"`
	EarliestFiling       string          `json:"earliest_filing_date"`
	ProgramEnd           string          `json:"program_end_date"`
	LatestFiling         string          `json:"latest_filing_date"`
	GracePeriodEnd       string          `json:"grace_period_end_date"`
	SixMonthReporting    string          `json:"six_month_reporting_date,omitempty"`
	TwelveMonthReporting string          `json:"twelve_month_reporting_date,omitempty"`
	Events               []TimelineEvent `json:"events"`
}

func (t Timeline) MarshalJSON() ([]byte, error) {
	out := timelineJSON{
		Stage:          t.Stage,
		EarliestFiling: FormatDate(t.EarliestFiling),
		ProgramEnd:     FormatDate(t.ProgramEnd),
		LatestFiling:   FormatDate(t.LatestFiling),
		GracePeriodEnd: FormatDate(t.GracePeriodEnd),
		Events:         t.Events(),
	}
	if t.SixMonthReporting != nil {
		out.SixMonthReporting = FormatDate(*t.SixMonthReporting)
	}
	if t.TwelveMonthReporting != nil {
		out.TwelveMonthReporting = FormatDate(*t.TwelveMonthReporting)
	}
	return json.Marshal(out)
}
