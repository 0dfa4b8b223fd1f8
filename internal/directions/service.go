package directions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/telemetry"
)

// ServiceConfig holds configuration for the directions service.
type ServiceConfig struct {
	// Provider is the directions backend.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider call and cache statistics (optional).
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to reuse an estimate for the same trip (default:
	// 2 minutes). The dispatcher re-fetches routes per notification; a short
	// cache keeps those lookups consistent within one poll tick.
	CacheTTL time.Duration
}

// Service resolves trip timing through a Provider. For a DEPARTURE basis the
// departure is fixed to the target time and arrival is derived by adding the
// route duration; for ARRIVAL the arrival is fixed and departure is derived
// by subtracting it.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.ProviderMetrics
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]*cachedEstimate
}

type cachedEstimate struct {
	estimate  *RouteEstimate
	expiresAt time.Time
}

// NewService creates a new directions service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 2 * time.Minute
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cacheTTL: cacheTTL,
		cache:    make(map[string]*cachedEstimate),
	}
}

// Estimate computes the route estimate for the requested trip.
func (s *Service) Estimate(ctx context.Context, req EstimateRequest) (*RouteEstimate, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	key := s.cacheKey(req)

	s.mu.Lock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), "estimate")
		}
		return entry.estimate, nil
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), "estimate")
	}

	start := time.Now()
	route, err := s.provider.Route(ctx, req)
	if s.metrics != nil {
		s.metrics.RecordRequest(s.provider.Name(), "route", time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("origin", req.Origin).
			Str("destination", req.Destination).
			Str("basis", string(req.Basis)).
			Msg("route estimation failed")
		return nil, err
	}

	if len(route.Legs) == 0 {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "EMPTY_ROUTE",
			Message:  "provider returned a route with no legs",
			Err:      ErrNoRouteFound,
		}
	}

	estimate := resolveTiming(req, route)
	estimate.Provider = s.provider.Name()
	estimate.FetchedAt = time.Now()

	s.mu.Lock()
	s.cache[key] = &cachedEstimate{estimate: estimate, expiresAt: time.Now().Add(s.cacheTTL)}
	s.mu.Unlock()

	s.logger.Debug().
		Int("duration_seconds", estimate.DurationSeconds).
		Int("legs", len(estimate.Legs)).
		Time("departure", estimate.DepartureTime).
		Time("arrival", estimate.ArrivalTime).
		Msg("route estimated")

	return estimate, nil
}

// resolveTiming anchors departure and arrival per the request basis.
func resolveTiming(req EstimateRequest, route *ProviderRoute) *RouteEstimate {
	duration := time.Duration(route.DurationSeconds) * time.Second

	est := &RouteEstimate{
		DurationSeconds: route.DurationSeconds,
		DistanceMeters:  route.DistanceMeters,
		Legs:            route.Legs,
	}

	if req.Basis == BasisArrival {
		est.ArrivalTime = req.TargetTime
		est.DepartureTime = req.TargetTime.Add(-duration)
	} else {
		est.DepartureTime = req.TargetTime
		est.ArrivalTime = req.TargetTime.Add(duration)
	}

	return est
}

func validateRequest(req EstimateRequest) error {
	var missing string
	switch {
	case strings.TrimSpace(req.Origin) == "":
		missing = "origin"
	case strings.TrimSpace(req.Destination) == "":
		missing = "destination"
	case req.TargetTime.IsZero():
		missing = "target time"
	case req.Basis != BasisDeparture && req.Basis != BasisArrival:
		return &Error{
			Code:    "INVALID_BASIS",
			Message: fmt.Sprintf("unknown basis %q", req.Basis),
			Err:     ErrInvalidRequest,
		}
	}
	if missing != "" {
		return &Error{
			Code:    "MISSING_FIELD",
			Message: missing + " is required",
			Err:     ErrInvalidRequest,
		}
	}
	return nil
}

func (s *Service) cacheKey(req EstimateRequest) string {
	return fmt.Sprintf("%s|%s|%s|%d",
		strings.ToLower(req.Origin),
		strings.ToLower(req.Destination),
		req.Basis,
		req.TargetTime.Unix(),
	)
}
