// internal/eligibility/engine.go
package eligibility

import (
	"time"
)

// Engine runs the parser, rule evaluator, aggregator and result builder in
// sequence. It holds only the immutable policy and a clock, so one Engine
// can serve any number of concurrent callers.
type Engine struct {
	policy Policy
	now    func() time.Time
}

type Option func(*Engine)

// WithClock replaces time.Now as the source of today's date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine validates the rule table up front so that a misconfigured policy
// fails at startup instead of on a request.
func NewEngine(policy Policy, opts ...Option) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		policy: policy.clone(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Validate checks a raw application against the rules as of today.
func (e *Engine) Validate(raw map[string]interface{}) Outcome {
	return e.ValidateAt(raw, e.now())
}

// ValidateAt checks a raw application as of the calendar date of now.
func (e *Engine) ValidateAt(raw map[string]interface{}, now time.Time) Outcome {
	snapshot, structural := Parse(raw)
	if len(structural) > 0 {
		return Build(nil, Aggregate(structural, nil))
	}

	business := e.Evaluate(*snapshot, now)
	return Build(snapshot, Aggregate(nil, business))
}

// Evaluate runs the business rules against an already parsed snapshot.
func (e *Engine) Evaluate(snapshot Snapshot, now time.Time) []Violation {
	return evaluate(&e.policy, snapshot, e.Today(now))
}

// Today converts an instant to the civil date the rules compare against.
func (e *Engine) Today(now time.Time) time.Time {
	return civilDate(now, e.policy.Location)
}

// Now returns the engine clock's current instant.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Policy returns a copy of the active rule table.
func (e *Engine) Policy() Policy {
	return e.policy.clone()
}
