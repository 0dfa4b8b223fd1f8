// Package directions provides transit route estimation for alerts.
package directions

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for route estimation.
var (
	// ErrProviderUnavailable indicates the directions provider is down or the
	// circuit breaker is open.
	ErrProviderUnavailable = errors.New("directions provider unavailable")
	// ErrNoRouteFound indicates no transit route exists between the given places.
	ErrNoRouteFound = errors.New("no route found between the given places")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidRequest indicates the origin, destination, or time is unusable.
	ErrInvalidRequest = errors.New("invalid directions request")
)

// Basis determines which end of the trip the requested time pins down.
type Basis string

const (
	// BasisDeparture fixes the departure time; arrival is derived.
	BasisDeparture Basis = "DEPARTURE"
	// BasisArrival fixes the arrival time; departure is derived.
	BasisArrival Basis = "ARRIVAL"
)

// EstimateRequest asks for a transit route between two free-text places.
type EstimateRequest struct {
	Origin      string
	Destination string
	Basis       Basis
	TargetTime  time.Time
}

// Estimator computes route estimates. Implemented by Service; consumers take
// the interface so tests can substitute a stub.
type Estimator interface {
	Estimate(ctx context.Context, req EstimateRequest) (*RouteEstimate, error)
}

// Provider is a raw directions backend. It returns route duration, distance,
// and legs for a trip anchored at the given time; the Service derives the
// opposite endpoint from the basis.
type Provider interface {
	// Route retrieves a transit route. Implementations must return at least
	// one leg on success.
	Route(ctx context.Context, req EstimateRequest) (*ProviderRoute, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// ProviderRoute is the raw result from a directions backend.
type ProviderRoute struct {
	DurationSeconds int
	DistanceMeters  int
	Legs            []RouteLeg
}

// RouteEstimate is the resolved trip timing. It is transient: callers extract
// what they need into the alert record and discard it.
type RouteEstimate struct {
	DepartureTime   time.Time
	ArrivalTime     time.Time
	DurationSeconds int
	DistanceMeters  int
	Legs            []RouteLeg
	Provider        string
	FetchedAt       time.Time
}

// RouteLeg is one step of the trip.
type RouteLeg struct {
	Mode         string // WALKING, TRANSIT, ...
	Distance     string // human-readable, e.g. "1.2 km"
	Duration     string // human-readable, e.g. "8 mins"
	Instructions string
	Transit      *TransitDetail
}

// TransitDetail describes the vehicle and stops for a transit leg.
type TransitDetail struct {
	LineName      string
	LineShortName string
	VehicleType   string
	DepartureStop string
	ArrivalStop   string
	NumStops      int
	Headsign      string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
}

// Error provides detailed error information from the directions provider.
type Error struct {
	Provider string
	Code     string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be
// retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
