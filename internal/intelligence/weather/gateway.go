// Package weather turns current conditions near a venue into a crowd-impact hint.
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"place-intelligence/internal/common/errors"
	httpclient "place-intelligence/internal/common/http"
	"place-intelligence/internal/common/logger"
	"place-intelligence/internal/common/metrics"
	"place-intelligence/internal/intelligence/cache"
	"place-intelligence/internal/models"
)

const serviceName = "weather"

type Options struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	TTL     time.Duration
}

// Gateway returns zero or one context signal and never fails.
type Gateway struct {
	opts   Options
	client *httpclient.Client
	cache  *cache.TTL[[]models.ContextSignal]
	flight cache.Flight[[]models.ContextSignal]
	logger logger.Logger
}

func NewGateway(opts Options, log logger.Logger) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Gateway{
		opts:   opts,
		client: httpclient.NewClient(opts.Timeout),
		cache:  cache.NewTTL[[]models.ContextSignal](opts.TTL),
		logger: logger.ForComponent(log, "weather-gateway"),
	}
}

func (g *Gateway) Enabled() bool {
	return g != nil && g.opts.Enabled && g.opts.BaseURL != ""
}

// Fetch reads current conditions at the coordinates, cached per ~1 km cell.
func (g *Gateway) Fetch(ctx context.Context, lat, lng float64) []models.ContextSignal {
	if !g.Enabled() {
		return []models.ContextSignal{}
	}

	key := cache.ContextKey(lat, lng)
	if signals, ok := g.cache.Get(key); ok {
		metrics.IntelligenceCacheLookups.WithLabelValues("context", "hit").Inc()
		return signals
	}
	metrics.IntelligenceCacheLookups.WithLabelValues("context", "miss").Inc()

	signals, _, _ := g.flight.Do(key, func() ([]models.ContextSignal, error) {
		if cached, ok := g.cache.Get(key); ok {
			return cached, nil
		}
		current, err := g.current(ctx, lat, lng)
		if err != nil {
			return []models.ContextSignal{}, nil
		}
		fresh := []models.ContextSignal{Classify(current)}
		g.cache.Set(key, fresh)
		return fresh, nil
	})
	if signals == nil {
		signals = []models.ContextSignal{}
	}
	return signals
}

// Clear empties the context space.
func (g *Gateway) Clear() {
	if g != nil {
		g.cache.Clear()
	}
}

// Current is the subset of the Open-Meteo "current" block we read.
type Current struct {
	WeatherCode   *int     `json:"weather_code"`
	Precipitation *float64 `json:"precipitation"`
	Temperature   *float64 `json:"temperature_2m"`
}

type forecastResponse struct {
	Current *Current `json:"current"`
}

func (g *Gateway) current(ctx context.Context, lat, lng float64) (Current, error) {
	ctx, span := otel.Tracer("place-intelligence/weather").Start(ctx, "weather.fetch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%.4f", lat))
	params.Set("longitude", fmt.Sprintf("%.4f", lng))
	params.Set("current", "weather_code,precipitation,temperature_2m")

	sep := "?"
	if strings.Contains(g.opts.BaseURL, "?") {
		sep = "&"
	}

	var resp forecastResponse
	err := g.client.DoJSON(ctx, httpclient.JSONRequest{
		Service: serviceName,
		URL:     g.opts.BaseURL + sep + params.Encode(),
	}, &resp)
	if err == nil && (resp.Current == nil || resp.Current.WeatherCode == nil) {
		err = errors.NewUpstreamMalformedError(serviceName, fmt.Errorf("missing current.weather_code"))
	}

	if err != nil {
		outcome := strings.ToLower(string(errors.CodeOf(err)))
		metrics.IntelligenceUpstreamRequests.WithLabelValues(serviceName, outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.logger.Warn("Weather lookup failed", map[string]interface{}{
			"outcome": outcome,
			"error":   err.Error(),
		})
		return Current{}, err
	}

	metrics.IntelligenceUpstreamRequests.WithLabelValues(serviceName, "success").Inc()
	return *resp.Current, nil
}
