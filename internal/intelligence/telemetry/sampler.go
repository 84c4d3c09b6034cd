// Package telemetry samples finished results onto a bounded queue and drains them into sinks.
package telemetry

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/models"
)

// Snapshot is one sampled result as written to the sinks.
type Snapshot struct {
	ID           string                    `json:"id"`
	VenueID      string                    `json:"venueId"`
	ModelVersion string                    `json:"modelVersion"`
	Outcome      string                    `json:"outcome"`
	UserID       string                    `json:"userId,omitempty"`
	WorkScore    int                       `json:"workScore"`
	Confidence   float64                   `json:"confidence"`
	CreatedAt    time.Time                 `json:"createdAt"`
	Result       *models.PlaceIntelligence `json:"result"`
}

// NewSnapshot stamps a result with a fresh id. userID is the acting user and may be empty.
func NewSnapshot(result *models.PlaceIntelligence, outcome, userID string) Snapshot {
	s := Snapshot{
		ID:        uuid.NewString(),
		Outcome:   outcome,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Result:    result,
	}
	if result != nil {
		s.VenueID = result.VenueID
		s.ModelVersion = result.ModelVersion
		s.WorkScore = result.WorkScore
		s.Confidence = result.Confidence
		if !result.GeneratedAt.IsZero() {
			s.CreatedAt = result.GeneratedAt.UTC()
		}
	}
	return s
}

// Sink persists snapshots. Implementations must be safe for use by one goroutine at a time.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap Snapshot) error
}

type Options struct {
	SampleRate   float64
	RatePerSec   float64
	Burst        int
	QueueSize    int
	WriteTimeout time.Duration
}

// Sampler never blocks the caller. Snapshots pass a probability gate, then a token
// bucket, then a non-blocking enqueue; anything that does not fit is dropped.
type Sampler struct {
	opts    Options
	sink    Sink
	limiter *rate.Limiter
	queue   chan Snapshot
	done    chan struct{}
	random  func() float64
	logger  logger.Logger

	mu     sync.RWMutex
	closed bool
}

func NewSampler(opts Options, sink Sink, log logger.Logger) *Sampler {
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	opts.SampleRate = models.Clamp01(opts.SampleRate)

	s := &Sampler{
		opts:    opts,
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		queue:   make(chan Snapshot, opts.QueueSize),
		done:    make(chan struct{}),
		random:  rand.Float64,
		logger:  logger.ForComponent(log, "telemetry-sampler"),
	}
	go s.drain()
	return s
}

// Offer reports whether the snapshot was queued.
func (s *Sampler) Offer(snap Snapshot) bool {
	if s == nil {
		return false
	}
	if s.random() >= s.opts.SampleRate {
		metrics.IntelligenceTelemetrySnapshots.WithLabelValues("sampled_out").Inc()
		return false
	}
	if !s.limiter.Allow() {
		metrics.IntelligenceTelemetrySnapshots.WithLabelValues("rate_limited").Inc()
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- snap:
		return true
	default:
		metrics.IntelligenceTelemetrySnapshots.WithLabelValues("dropped").Inc()
		return false
	}
}

// Close stops accepting snapshots and waits for the queue to drain or ctx to end.
func (s *Sampler) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sampler) drain() {
	defer close(s.done)
	for snap := range s.queue {
		s.write(snap)
	}
}

func (s *Sampler) write(snap Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	if err := s.sink.Write(ctx, snap); err != nil {
		metrics.IntelligenceTelemetrySnapshots.WithLabelValues("failed").Inc()
		s.logger.Warn("Telemetry write failed", map[string]interface{}{
			"sink":       s.sink.Name(),
			"snapshotId": snap.ID,
			"error":      err.Error(),
		})
		return
	}
	metrics.IntelligenceTelemetrySnapshots.WithLabelValues("written").Inc()
}
