// Package engine runs the full place intelligence pipeline behind a never-failing Build.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"place-intelligence/internal/common/errors"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/common/observability"
	"place-intelligence/internal/intelligence/cache"
	"place-intelligence/internal/intelligence/external"
	"place-intelligence/internal/intelligence/forecast"
	"place-intelligence/internal/intelligence/momentum"
	"place-intelligence/internal/intelligence/reliability"
	"place-intelligence/internal/intelligence/scoring"
	"place-intelligence/internal/intelligence/signals"
	"place-intelligence/internal/intelligence/telemetry"
	"place-intelligence/internal/intelligence/vibe"
	"place-intelligence/internal/models"
)

// Build outcomes, as recorded on metrics and telemetry.
const (
	OutcomeSuccess  = "success"
	OutcomeCacheHit = "cache_hit"
	OutcomeFallback = "fallback"
)

// ExternalSource supplies third-party rating signals. Implementations absorb their own failures.
type ExternalSource interface {
	Fetch(ctx context.Context, q external.Query) []models.ExternalRatingSignal
	Invalidate(ctx context.Context, venue string)
}

// ContextSource supplies weather context. Implementations absorb their own failures.
type ContextSource interface {
	Fetch(ctx context.Context, lat, lng float64) []models.ContextSignal
	Clear()
}

// SnapshotSink receives finished results for sampling; Offer must not block.
type SnapshotSink interface {
	Offer(snap telemetry.Snapshot) bool
}

// Input is one build request. Reports are read-only.
type Input struct {
	Venue    models.Venue
	Reports  []models.VisitReport
	Inferred *models.InferredReviewSignal
	Stored   *models.StoredIntel

	// UserID is the acting user, if any. It only reaches telemetry.
	UserID string

	// Now pins the clock; zero uses the engine clock.
	Now time.Time
}

type Options struct {
	ModelVersion string
	ResultTTL    time.Duration
	FetchTimeout time.Duration
	MaxReports   int
	Location     *time.Location
}

type Deps struct {
	External      ExternalSource
	Context       ContextSource
	Telemetry     SnapshotSink
	Observability *observability.Observability
	Logger        logger.Logger
}

// Engine owns the result cache and the gateways. Safe for concurrent use.
type Engine struct {
	opts     Options
	external ExternalSource
	context  ContextSource
	sink     SnapshotSink
	obs      *observability.Observability
	results  *cache.TTL[*models.PlaceIntelligence]
	flight   cache.Flight[*models.PlaceIntelligence]
	logger   logger.Logger
	now      func() time.Time
	forecast func(map[int]signals.HourStat, *float64, float64, time.Time, *time.Location) []models.CrowdForecastPoint
}

func New(opts Options, deps Deps) *Engine {
	if opts.ModelVersion == "" {
		opts.ModelVersion = "place-intel-v2"
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = 15 * time.Minute
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	if opts.MaxReports <= 0 {
		opts.MaxReports = 200
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	e := &Engine{
		opts:     opts,
		external: deps.External,
		context:  deps.Context,
		sink:     deps.Telemetry,
		obs:      deps.Observability,
		results:  cache.NewTTL[*models.PlaceIntelligence](opts.ResultTTL),
		logger:   logger.ForComponent(deps.Logger, "intelligence-engine"),
		now:      time.Now,
		forecast: forecast.Build,
	}
	if e.external == nil {
		e.external = noExternal{}
	}
	if e.context == nil {
		e.context = noContext{}
	}
	return e
}

// Build computes the intelligence for one venue. It never fails: invalid input, a stage
// error, caller cancellation or a panic all yield the fixed low-confidence default.
func (e *Engine) Build(ctx context.Context, in Input) *models.PlaceIntelligence {
	start := time.Now()
	now := in.Now
	if now.IsZero() {
		now = e.now()
	}

	ctx, span := e.obs.StartSpan(ctx, "intelligence.build", attribute.String("venue.id", in.Venue.ID))
	defer span.End()

	result, outcome := e.build(ctx, in, now)
	span.SetAttributes(attribute.String("outcome", outcome))
	e.report(ctx, in, result, outcome, time.Since(start))
	return result
}

func (e *Engine) build(ctx context.Context, in Input, now time.Time) (result *models.PlaceIntelligence, outcome string) {
	defer func() {
		if r := recover(); r != nil {
			e.fail(in, errors.NewComputationFaultError("build", r))
			result, outcome = Fallback(in.Venue.ID, e.opts.ModelVersion, now), OutcomeFallback
		}
	}()

	if err := validate(in.Venue); err != nil {
		e.fail(in, err)
		return Fallback(in.Venue.ID, e.opts.ModelVersion, now), OutcomeFallback
	}

	key := cache.ResultKey(in.Venue.ID, in.Venue.Name, in.Venue.Lat, in.Venue.Lng)
	if cached, ok := e.results.Get(key); ok {
		metrics.IntelligenceCacheLookups.WithLabelValues("result", "hit").Inc()
		return cached, OutcomeCacheHit
	}
	metrics.IntelligenceCacheLookups.WithLabelValues("result", "miss").Inc()

	// One computation per key; it outlives any single caller so the result still lands in the cache.
	// computed is only set when this caller's closure was the one that ran.
	var computed bool
	detached := context.WithoutCancel(ctx)
	flight := e.flight.DoChan(key, func() (built *models.PlaceIntelligence, err error) {
		defer recoverStage("compute", &err)
		if cached, ok := e.results.Get(key); ok {
			return cached, nil
		}
		built, err = e.compute(detached, in, now)
		if err != nil {
			return nil, err
		}
		e.results.Set(key, built)
		computed = true
		return built, nil
	})

	select {
	case res := <-flight:
		if res.Err != nil {
			e.fail(in, res.Err)
			return Fallback(in.Venue.ID, e.opts.ModelVersion, now), OutcomeFallback
		}
		if !computed {
			return res.Val, OutcomeCacheHit
		}
		return res.Val, OutcomeSuccess
	case <-ctx.Done():
		e.fail(in, errors.NewComputationFaultError("build", ctx.Err()))
		return Fallback(in.Venue.ID, e.opts.ModelVersion, now), OutcomeFallback
	}
}

// report records the outcome and offers the result to telemetry. Nothing here reaches the caller.
func (e *Engine) report(ctx context.Context, in Input, result *models.PlaceIntelligence, outcome string, d time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("Telemetry hook panicked", map[string]interface{}{
				"venueId": in.Venue.ID,
				"outcome": outcome,
				"panic":   fmt.Sprint(r),
			})
		}
	}()

	e.record(ctx, outcome, d)
	if outcome != OutcomeCacheHit && e.sink != nil {
		e.sink.Offer(telemetry.NewSnapshot(result, outcome, in.UserID))
	}
}

// Invalidate drops cached results and external signals for one venue id.
// An empty id clears every space, context included.
func (e *Engine) Invalidate(ctx context.Context, venueID string) int {
	venueID = strings.TrimSpace(venueID)
	if venueID == "" {
		n := e.results.Len()
		e.results.Clear()
		e.external.Invalidate(ctx, "")
		e.context.Clear()
		e.logger.Info("Cleared all intelligence caches", map[string]interface{}{"results": n})
		return n
	}

	n := e.results.DeleteWhere(func(key string) bool { return cache.ResultVenue(key) == venueID })
	e.external.Invalidate(ctx, venueID)
	e.logger.Info("Invalidated venue intelligence", map[string]interface{}{
		"venueId": venueID,
		"results": n,
	})
	return n
}

func (e *Engine) compute(ctx context.Context, in Input, now time.Time) (*models.PlaceIntelligence, error) {
	ext, ctxSignals, err := e.fetch(ctx, in)
	if err != nil {
		return nil, err
	}

	loc := e.opts.Location
	reports := recent(in.Reports, e.opts.MaxReports)

	summary := signals.Extract(reports, loc)
	factors := signals.ResolveFactors(summary, in.Inferred, in.Stored)
	meta := external.ComputeMeta(ext)
	rel := reliability.Score(summary, meta.TrustScore)
	mom := momentum.Detect(reports, now)
	vibes := vibe.Classify(vibe.Input{
		Summary:  summary,
		Factors:  factors,
		Inferred: in.Inferred,
		Hour:     now.In(loc).Hour(),
		OpenNow:  in.Venue.OpenNow,
	})

	comp := scoring.Compose(scoring.Input{
		Venue:       in.Venue,
		Stored:      in.Stored,
		Summary:     summary,
		Factors:     factors,
		External:    ext,
		Meta:        meta,
		Context:     ctxSignals,
		Momentum:    mom,
		Reliability: rel,
		Vibe:        vibes,
	})

	return &models.PlaceIntelligence{
		VenueID:         in.Venue.ID,
		WorkScore:       comp.WorkScore,
		VibeScores:      vibes.Scores,
		PrimaryVibe:     vibes.Primary,
		Breakdown:       comp.Breakdown,
		CrowdLevel:      comp.CrowdLevel,
		BestTime:        comp.BestTime,
		Confidence:      comp.Confidence,
		Reliability:     rel,
		Momentum:        mom,
		Highlights:      comp.Highlights,
		UseCases:        comp.UseCases,
		ExternalSignals: ext,
		ExternalMeta:    meta,
		ContextSignals:  ctxSignals,
		Forecast:        e.forecast(summary.Hours, summary.Busyness, comp.Confidence, now, loc),
		ModelVersion:    e.opts.ModelVersion,
		GeneratedAt:     now.UTC(),
	}, nil
}

// fetch runs both gateways concurrently under FetchTimeout.
func (e *Engine) fetch(ctx context.Context, in Input) ([]models.ExternalRatingSignal, []models.ContextSignal, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	var (
		ext        []models.ExternalRatingSignal
		ctxSignals []models.ContextSignal
		g          errgroup.Group
	)
	g.Go(func() (err error) {
		defer recoverStage("external", &err)
		ext = e.external.Fetch(fetchCtx, external.Query{
			VenueID: in.Venue.ID,
			Name:    in.Venue.Name,
			Lat:     in.Venue.Lat,
			Lng:     in.Venue.Lng,
		})
		return nil
	})
	g.Go(func() (err error) {
		defer recoverStage("context", &err)
		ctxSignals = e.context.Fetch(fetchCtx, in.Venue.Lat, in.Venue.Lng)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ext == nil {
		ext = []models.ExternalRatingSignal{}
	}
	if ctxSignals == nil {
		ctxSignals = []models.ContextSignal{}
	}
	return ext, ctxSignals, nil
}

func recoverStage(stage string, err *error) {
	if r := recover(); r != nil {
		*err = errors.NewComputationFaultError(stage, r)
	}
}

func (e *Engine) record(ctx context.Context, outcome string, d time.Duration) {
	metrics.IntelligenceBuilds.WithLabelValues(outcome).Inc()
	metrics.IntelligenceBuildDuration.WithLabelValues(outcome).Observe(d.Seconds())
	e.obs.RecordBuild(ctx, outcome, d)
}

func (e *Engine) fail(in Input, err error) {
	stdErr := errors.Normalize(err)
	e.logger.Warn("Intelligence build fell back to default", map[string]interface{}{
		"venueId":   in.Venue.ID,
		"venueName": in.Venue.Name,
		"errorCode": string(stdErr.Code),
		"message":   stdErr.Message,
		"details":   stdErr.Details,
	})
}

func validate(v models.Venue) error {
	if strings.TrimSpace(v.ID) == "" && strings.TrimSpace(v.Name) == "" {
		return errors.NewInvalidInputError("venue id or name is required")
	}
	if math.IsNaN(v.Lat) || math.IsNaN(v.Lng) || v.Lat < -90 || v.Lat > 90 || v.Lng < -180 || v.Lng > 180 {
		return errors.NewInvalidInputError("coordinates out of range")
	}
	return nil
}

// recent keeps the newest limit reports without reordering the caller's slice.
func recent(reports []models.VisitReport, limit int) []models.VisitReport {
	if len(reports) <= limit {
		return reports
	}
	sorted := append([]models.VisitReport(nil), reports...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted[:limit]
}

type noExternal struct{}

func (noExternal) Fetch(context.Context, external.Query) []models.ExternalRatingSignal {
	return []models.ExternalRatingSignal{}
}

func (noExternal) Invalidate(context.Context, string) {}

type noContext struct{}

func (noContext) Fetch(context.Context, float64, float64) []models.ContextSignal {
	return []models.ContextSignal{}
}

func (noContext) Clear() {}
