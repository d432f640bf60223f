// internal/workers/eligibility/check-opt-eligibility/handler.go
package checkopteligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"opt-eligibility/internal/common/errors"
	"opt-eligibility/internal/common/logger"
	"opt-eligibility/internal/common/metrics"
	"opt-eligibility/internal/common/observability"
	"opt-eligibility/internal/eligibility"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "check-opt-eligibility"
)

type Handler struct {
	config       *Config
	engine       *eligibility.Engine
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, engine *eligibility.Engine, obs *observability.Observability, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		obs:          obs,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewInvalidApplicationPayloadError(err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewEligibilityCheckFailedError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// execute returns OPT_INELIGIBLE with every violation attached when the
// application breaks a rule, and INVALID_APPLICATION_PAYLOAD when there is no
// application object at all.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Application == nil {
		return nil, errors.NewInvalidApplicationPayloadError("application variable is missing or not an object")
	}
	if input.RequestID == "" {
		input.RequestID = uuid.NewString()
	}

	if ctx.Err() != nil {
		return nil, errors.NewEligibilityCheckTimeoutError(h.config.Timeout)
	}

	ctx, span := h.obs.StartSpan(ctx, "eligibility.check",
		attribute.String("channel", metrics.ChannelWorker),
		attribute.String("requestId", input.RequestID),
	)
	defer span.End()

	start := time.Now()
	now := h.engine.Now()
	outcome := h.engine.ValidateAt(input.Application, now)
	elapsed := time.Since(start)

	metrics.RecordValidation(metrics.ChannelWorker, outcome, elapsed)
	h.obs.RecordValidation(ctx, metrics.ChannelWorker, metrics.OutcomeLabel(outcome), elapsed)

	switch result := outcome.(type) {
	case eligibility.Ineligible:
		h.logger.Info("validation completed", map[string]interface{}{
			"requestId":      input.RequestID,
			"isEligible":     false,
			"violationCount": len(result.Violations),
		})
		span.SetAttributes(attribute.Int("violations", len(result.Violations)))
		return nil, errors.NewOptIneligibleError(len(result.Violations), result.Violations).
			WithMetadata("requestId", input.RequestID)

	case eligibility.Eligible:
		h.logger.Info("validation completed", map[string]interface{}{
			"requestId":      input.RequestID,
			"isEligible":     true,
			"violationCount": 0,
		})
		return &Output{
			IsEligible:     true,
			NormalizedData: result.Data,
			Timeline:       eligibility.TimelineFor(result.Data),
			RequestID:      input.RequestID,
			CheckedOn:      eligibility.FormatDate(h.engine.Today(now)),
		}, nil
	}

	return nil, errors.NewInternalError(fmt.Errorf("unexpected outcome %T", outcome))
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
