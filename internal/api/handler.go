package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"opt-eligibility/internal/api/respond"
	"opt-eligibility/internal/common/metrics"
	"opt-eligibility/internal/eligibility"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type ValidResponse struct {
	Status   string                `json:"status"`
	Data     eligibility.Snapshot  `json:"data"`
	Timeline *eligibility.Timeline `json:"timeline,omitempty"`
}

type InvalidDetail struct {
	Status string                  `json:"status"`
	Errors []eligibility.Violation `json:"errors"`
}

type InvalidResponse struct {
	Detail InvalidDetail `json:"detail"`
}

// Validate handles POST /validate. Bad input is always a 400 listing every
// violation; it never becomes a 5xx.
func (h *Handler) Validate(c *gin.Context) {
	start := time.Now()
	ctx, span := h.obs.StartSpan(c.Request.Context(), "eligibility.validate",
		attribute.String("channel", metrics.ChannelHTTP))
	defer span.End()

	raw := decodeApplication(c)
	outcome := h.engine.Validate(raw)
	elapsed := time.Since(start)

	metrics.RecordValidation(metrics.ChannelHTTP, outcome, elapsed)
	h.obs.RecordValidation(ctx, metrics.ChannelHTTP, metrics.OutcomeLabel(outcome), elapsed)
	c.Set("isEligible", outcome.IsEligible())

	switch result := outcome.(type) {
	case eligibility.Eligible:
		span.SetAttributes(attribute.Bool("eligible", true))
		respond.OK(c, ValidResponse{
			Status:   "valid",
			Data:     result.Data,
			Timeline: eligibility.TimelineFor(result.Data),
		})

	case eligibility.Ineligible:
		span.SetAttributes(
			attribute.Bool("eligible", false),
			attribute.Int("violations", len(result.Violations)),
		)
		c.Set("violationCount", len(result.Violations))
		respond.JSON(c, http.StatusBadRequest, InvalidResponse{
			Detail: InvalidDetail{Status: "invalid", Errors: result.Violations},
		})
	}
}

// decodeApplication reads the body as a JSON object. Anything else yields a
// nil map, which the engine reports as a single general violation.
func decodeApplication(c *gin.Context) map[string]interface{} {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	if dec.More() {
		return nil
	}

	obj, _ := doc.(map[string]interface{})
	return obj
}

func (h *Handler) Health(c *gin.Context) {
	respond.OK(c, gin.H{"status": "ok"})
}

// Ready runs every readiness check. Any failure answers 503.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			ready = false
			results[name] = err.Error()
			h.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	if !ready {
		respond.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": results})
		return
	}
	respond.OK(c, gin.H{"status": "ready", "checks": results})
}

type StageRule struct {
	Code               eligibility.OptStage `json:"code"`
	Name               string               `json:"name"`
	UnemploymentDayCap int                  `json:"unemployment_day_cap"`
}

type RulesResponse struct {
	DateWindow struct {
		PastDays   int `json:"past_days"`
		FutureDays int `json:"future_days"`
	} `json:"date_window"`
	Stages                         []StageRule               `json:"stages"`
	DegreeLevels                   []eligibility.DegreeLevel `json:"degree_levels"`
	ExtensionDegrees               []eligibility.DegreeLevel `json:"extension_degrees"`
	StemGating                     bool                      `json:"stem_gating"`
	PreCompletionRequiresFutureEnd bool                      `json:"pre_completion_requires_future_end"`
	Timezone                       string                    `json:"timezone"`
	Rules                          []string                  `json:"rules"`
}

// Rules echoes the active rule table so clients can render form hints.
func (h *Handler) Rules(c *gin.Context) {
	respond.OK(c, rulesResponse(h.engine.Policy()))
}

func rulesResponse(p eligibility.Policy) RulesResponse {
	var resp RulesResponse
	resp.DateWindow.PastDays = p.DateWindow.PastDays
	resp.DateWindow.FutureDays = p.DateWindow.FutureDays

	for _, stage := range eligibility.OptStages() {
		resp.Stages = append(resp.Stages, StageRule{
			Code:               stage,
			Name:               stage.DisplayName(),
			UnemploymentDayCap: p.Cap(stage),
		})
	}

	resp.DegreeLevels = eligibility.DegreeLevels()
	resp.ExtensionDegrees = p.ExtensionDegrees
	resp.StemGating = p.StemGating
	resp.PreCompletionRequiresFutureEnd = p.PreCompletionRequiresFutureEnd
	resp.Timezone = "UTC"
	if p.Location != nil {
		resp.Timezone = p.Location.String()
	}
	resp.Rules = eligibility.RuleNames()
	return resp
}
