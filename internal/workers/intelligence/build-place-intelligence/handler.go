// internal/workers/intelligence/build-place-intelligence/handler.go
package buildplaceintelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"place-intelligence/internal/common/errors"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/common/observability"
	"place-intelligence/internal/common/validation"
	"place-intelligence/internal/intelligence/engine"
	"place-intelligence/internal/intelligence/store"
	"place-intelligence/internal/models"
)

const TaskType = "build-place-intelligence"

// Builder is the slice of the engine this worker drives.
type Builder interface {
	Build(ctx context.Context, in engine.Input) *models.PlaceIntelligence
}

type HandlerOptions struct {
	Config        *Config
	Engine        Builder
	Reports       store.ReportSource
	Validator     *validation.Validator
	Observability *observability.Observability
	Logger        logger.Logger
}

type Handler struct {
	config    *Config
	engine    Builder
	reports   store.ReportSource
	validator *validation.Validator
	obs       *observability.Observability
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = LoadConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("%s: engine is required", TaskType)
	}
	if opts.Reports == nil {
		return nil, fmt.Errorf("%s: report source is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:    cfg,
		engine:    opts.Engine,
		reports:   opts.Reports,
		validator: opts.Validator,
		obs:       opts.Observability,
		errors:    errors.NewErrorHandler(log),
		logger:    log,
	}, nil
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
		h.failJob(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.obs.RecordJobProcessed(ctx, "completed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "completed")
}

// Execute loads the venue's recent reports and runs the engine. Only the report
// query can fail; the engine always answers.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidInputError("input cannot be nil")
	}

	// Reports are keyed by venue id; a name-only request scores on external and context signals.
	reports := []models.VisitReport{}
	if input.VenueID != "" {
		loaded, err := h.reports.RecentReports(ctx, input.VenueID, h.config.MaxReports)
		if err != nil {
			return nil, err
		}
		reports = loaded
	}

	result := h.engine.Build(ctx, engine.Input{
		Venue:    input.Venue(),
		Reports:  reports,
		Inferred: input.Inferred,
		Stored:   input.Stored,
		UserID:   input.UserID,
	})

	return &Output{
		PlaceIntelligence: result,
		WorkScore:         result.WorkScore,
		Confidence:        result.Confidence,
		ReportCount:       len(reports),
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewParseError(err)
	}

	if h.validator != nil {
		result, err := h.validator.Validate(TaskType, variables)
		if err != nil {
			return nil, errors.NewParseError(err)
		}
		if !result.Valid {
			return nil, errors.NewInvalidInputError(result.Summary())
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("place intelligence built", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"venueId":     output.PlaceIntelligence.VenueID,
		"workScore":   output.WorkScore,
		"confidence":  output.Confidence,
		"reportCount": output.ReportCount,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.obs.RecordJobProcessed(ctx, "failed")
	h.obs.RecordJobDuration(ctx, time.Since(start), "failed")
	h.errors.HandleJobError(ctx, client, job, err)
}
