// internal/workers/intelligence/invalidate-place-intelligence/handler.go
package invalidateplaceintelligence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"place-intelligence/internal/common/errors"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/common/validation"
)

const TaskType = "invalidate-place-intelligence"

type Invalidator interface {
	Invalidate(ctx context.Context, venueID string) int
}

type Handler struct {
	config    *Config
	engine    Invalidator
	validator *validation.Validator
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, engine Invalidator, validator *validation.Validator, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	log = logger.ForComponent(log, TaskType).WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		engine:    engine,
		validator: validator,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output := h.Execute(ctx, input)

	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	venueID := ""
	if input != nil {
		venueID = strings.TrimSpace(input.VenueID)
	}

	n := h.engine.Invalidate(ctx, venueID)
	scope := ScopeVenue
	if venueID == "" {
		scope = ScopeAll
	}
	return &Output{Invalidated: n, Scope: scope}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewParseError(err)
	}

	if h.validator != nil {
		variables, err := job.GetVariablesAsMap()
		if err != nil {
			return nil, errors.NewParseError(err)
		}
		result, err := h.validator.Validate(TaskType, variables)
		if err != nil {
			return nil, errors.NewParseError(err)
		}
		if !result.Valid {
			return nil, errors.NewInvalidInputError(result.Summary())
		}
	}
	return &input, nil
}
