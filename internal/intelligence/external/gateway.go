// Package external fetches third-party rating signals through the authenticated rating proxy.
package external

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"place-intelligence/internal/common/auth"
	"place-intelligence/internal/common/errors"
	httpclient "place-intelligence/internal/common/http"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/intelligence/cache"
	"place-intelligence/internal/models"
)

const (
	serviceName = "rating_proxy"
	ratingsPath = "/places/ratings"

	unknownSource = "unknown"
)

// Query identifies the venue to look up.
type Query struct {
	VenueID string
	Name    string
	Lat     float64
	Lng     float64
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	TTL             time.Duration
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

// Gateway never returns an error: every upstream problem becomes an empty list.
type Gateway struct {
	opts      Options
	client    *httpclient.Client
	tokens    auth.TokenProvider
	integrity auth.IntegrityProvider
	shared    *cache.RedisStore
	breaker   *gobreaker.CircuitBreaker[[]models.ExternalRatingSignal]
	cache     *cache.TTL[[]models.ExternalRatingSignal]
	flight    cache.Flight[[]models.ExternalRatingSignal]
	logger    logger.Logger
}

// NewGateway wires the proxy client. tokens, integrity and shared are optional.
func NewGateway(opts Options, tokens auth.TokenProvider, integrity auth.IntegrityProvider, shared *cache.RedisStore, log logger.Logger) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerOpenFor <= 0 {
		opts.BreakerOpenFor = 30 * time.Second
	}
	opts.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")

	g := &Gateway{
		opts:      opts,
		client:    httpclient.NewClient(opts.Timeout),
		tokens:    tokens,
		integrity: integrity,
		shared:    shared,
		cache:     cache.NewTTL[[]models.ExternalRatingSignal](opts.TTL),
		logger:    logger.ForComponent(log, "external-gateway"),
	}

	g.breaker = gobreaker.NewCircuitBreaker[[]models.ExternalRatingSignal](gobreaker.Settings{
		Name:    serviceName,
		Timeout: opts.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("Circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return g
}

// Enabled reports whether a proxy is configured at all.
func (g *Gateway) Enabled() bool {
	return g != nil && g.opts.BaseURL != ""
}

// Fetch returns sanitised signals for the venue, from cache when fresh.
// Concurrent callers for the same key share one proxy call.
func (g *Gateway) Fetch(ctx context.Context, q Query) []models.ExternalRatingSignal {
	if !g.Enabled() {
		return []models.ExternalRatingSignal{}
	}

	key := cache.ExternalKey(q.VenueID, q.Name, q.Lat, q.Lng)
	if signals, ok := g.cache.Get(key); ok {
		metrics.IntelligenceCacheLookups.WithLabelValues("external", "hit").Inc()
		return signals
	}
	metrics.IntelligenceCacheLookups.WithLabelValues("external", "miss").Inc()

	signals, _, _ := g.flight.Do(key, func() ([]models.ExternalRatingSignal, error) {
		if cached, ok := g.cache.Get(key); ok {
			return cached, nil
		}
		if cached, ok := g.readShared(ctx, key); ok {
			g.cache.Set(key, cached)
			return cached, nil
		}

		fresh, err := g.fetchRemote(ctx, q)
		if err != nil {
			return []models.ExternalRatingSignal{}, nil
		}
		g.cache.Set(key, fresh)
		g.writeShared(ctx, key, fresh)
		return fresh, nil
	})
	if signals == nil {
		signals = []models.ExternalRatingSignal{}
	}
	return signals
}

// Invalidate drops cached signals for one venue segment, or everything when venue is empty.
func (g *Gateway) Invalidate(ctx context.Context, venue string) {
	if g == nil {
		return
	}
	if venue == "" {
		g.cache.Clear()
	} else {
		g.cache.DeleteWhere(func(key string) bool {
			v, ok := cache.ExternalVenue(key)
			return ok && v == venue
		})
	}

	if g.shared == nil {
		return
	}
	var err error
	if venue == "" {
		_, err = g.shared.DeletePrefix(ctx, cache.ExternalPrefix)
	} else {
		_, err = g.shared.DeleteVenue(ctx, venue)
	}
	if err != nil {
		g.logger.Warn("Shared cache invalidation failed", map[string]interface{}{
			"venue": venue,
			"error": err.Error(),
		})
	}
}

type ratingsRequest struct {
	Name    string  `json:"name"`
	PlaceID string  `json:"placeId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type ratingsResponse struct {
	Signals []models.ExternalRatingSignal `json:"signals"`
}

func (g *Gateway) fetchRemote(ctx context.Context, q Query) ([]models.ExternalRatingSignal, error) {
	ctx, span := otel.Tracer("place-intelligence/external").Start(ctx, "external.fetch")
	span.SetAttributes(attribute.String("venue.id", q.VenueID))
	defer span.End()

	signals, err := g.breaker.Execute(func() ([]models.ExternalRatingSignal, error) {
		return g.call(ctx, q)
	})

	outcome := "success"
	switch {
	case err == nil:
	case stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "circuit_open"
	default:
		outcome = strings.ToLower(string(errors.CodeOf(err)))
	}
	metrics.IntelligenceUpstreamRequests.WithLabelValues(serviceName, outcome).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.logger.Warn("Rating proxy lookup failed", map[string]interface{}{
			"venueId": q.VenueID,
			"outcome": outcome,
			"error":   err.Error(),
		})
		return nil, err
	}
	span.SetAttributes(attribute.Int("signals", len(signals)))
	return signals, nil
}

func (g *Gateway) call(ctx context.Context, q Query) ([]models.ExternalRatingSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	var resp ratingsResponse
	err := g.client.DoJSON(ctx, httpclient.JSONRequest{
		Service: serviceName,
		Method:  "POST",
		URL:     g.opts.BaseURL + ratingsPath,
		Body:    ratingsRequest{Name: q.Name, PlaceID: q.VenueID, Lat: q.Lat, Lng: q.Lng},
		Headers: g.headers(ctx),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return Sanitize(resp.Signals), nil
}

func (g *Gateway) headers(ctx context.Context) map[string]string {
	h := map[string]string{}
	if g.tokens != nil {
		token, err := g.tokens.Token(ctx)
		if err != nil {
			g.logger.Warn("Proxy token unavailable, sending unauthenticated", map[string]interface{}{"error": err.Error()})
		} else if token != "" {
			h["Authorization"] = "Bearer " + token
		}
	}
	if g.integrity != nil {
		if token, err := g.integrity.IntegrityToken(ctx); err == nil && token != "" {
			h["X-App-Integrity"] = token
		}
	}
	return h
}

func (g *Gateway) readShared(ctx context.Context, key string) ([]models.ExternalRatingSignal, bool) {
	if g.shared == nil {
		return nil, false
	}
	var signals []models.ExternalRatingSignal
	found, err := g.shared.Get(ctx, key, &signals)
	if err != nil {
		g.logger.Warn("Shared cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	result := "miss"
	if found {
		result = "hit"
	}
	metrics.IntelligenceCacheLookups.WithLabelValues("shared", result).Inc()
	if !found {
		return nil, false
	}
	return Sanitize(signals), true
}

func (g *Gateway) writeShared(ctx context.Context, key string, signals []models.ExternalRatingSignal) {
	if g.shared == nil {
		return
	}
	if err := g.shared.Set(ctx, key, signals); err != nil {
		g.logger.Warn("Shared cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}

// Sanitize clamps ratings to [0,5], drops negative counts and names blank sources.
func Sanitize(in []models.ExternalRatingSignal) []models.ExternalRatingSignal {
	out := make([]models.ExternalRatingSignal, 0, len(in))
	for _, s := range in {
		s.Source = strings.ToLower(strings.TrimSpace(s.Source))
		if s.Source == "" {
			s.Source = unknownSource
		}
		if s.Rating != nil {
			s.Rating = models.Float(models.Clamp(*s.Rating, 0, 5))
		}
		if s.ReviewCount != nil && *s.ReviewCount < 0 {
			s.ReviewCount = nil
		}
		if s.PriceLevel != nil && (*s.PriceLevel < 0 || *s.PriceLevel > 4) {
			s.PriceLevel = nil
		}
		out = append(out, s)
	}
	return out
}
