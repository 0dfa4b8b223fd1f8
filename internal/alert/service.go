package alert

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/api/models"
	"github.com/punctualhq/punctual/internal/directions"
)

// Service errors.
var (
	// ErrAlertTerminal is returned when an operation targets a SENT or
	// CANCELLED alert.
	ErrAlertTerminal = errors.New("alert is in a terminal state")
)

// phoneE164Regex validates phone numbers in E.164 format.
var phoneE164Regex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

// ServiceConfig holds configuration for the alert service.
type ServiceConfig struct {
	Repo      Repository
	Estimator directions.Estimator
	Logger    zerolog.Logger
}

// Service provides alert CRUD and route (re)computation.
type Service struct {
	repo      Repository
	estimator directions.Estimator
	logger    zerolog.Logger
}

// NewService creates a new alert service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:      cfg.Repo,
		estimator: cfg.Estimator,
		logger:    cfg.Logger,
	}
}

// Create validates the input, persists a new PENDING alert, and immediately
// computes its notification schedule. A failed route computation does not
// fail the create: the alert stays persisted without derived times and the
// failure is reported in the returned RouteComputation.
func (s *Service) Create(ctx context.Context, input *models.AlertCreateRequest) (*models.AlertWithRoute, error) {
	if fieldErrors := validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	prep := input.PreparationMinutes
	if prep <= 0 {
		prep = DefaultPreparationMinutes
	}

	now := time.Now()
	a := &Alert{
		ID:                 "alrt_" + uuid.New().String()[:22],
		PhoneNumber:        strings.TrimSpace(input.PhoneNumber),
		Origin:             strings.TrimSpace(input.Origin),
		Destination:        strings.TrimSpace(input.Destination),
		TargetBasis:        TargetBasis(input.TargetBasis),
		TargetTime:         time.Time(input.TargetTime),
		PreparationMinutes: prep,
		Status:             StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	computation := s.compute(ctx, a)

	result := toAPIAlert(a)
	return &models.AlertWithRoute{Alert: result, RouteComputation: computation}, nil
}

// Get retrieves an alert by ID.
func (s *Service) Get(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toAPIAlert(a)
	return &result, nil
}

// List retrieves all alerts.
func (s *Service) List(ctx context.Context) (*models.AlertList, error) {
	alerts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAPIAlert(a))
	}

	return &models.AlertList{Items: items, Count: len(items)}, nil
}

// Recalculate re-runs the route estimate and rewrites the derived schedule.
// Sent flags are never part of the write set, so notifications that already
// went out stay delivered. Estimation failure leaves the alert untouched.
func (s *Service) Recalculate(ctx context.Context, id string) (*models.AlertWithRoute, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusSent || a.Status == StatusCancelled {
		return nil, ErrAlertTerminal
	}

	computation := s.compute(ctx, a)

	result := toAPIAlert(a)
	return &models.AlertWithRoute{Alert: result, RouteComputation: computation}, nil
}

// Cancel marks an alert CANCELLED. The next selector pass excludes it from
// every notification kind; a dispatch already in flight is best-effort.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Alert, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusSent || a.Status == StatusCancelled {
		return nil, ErrAlertTerminal
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return nil, err
	}

	a.Status = StatusCancelled
	result := toAPIAlert(a)

	s.logger.Info().Str("alert_id", id).Msg("alert cancelled")
	return &result, nil
}

// Delete removes an alert.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// compute estimates the route, plans the notification schedule, and persists
// the derived fields. It mutates a in place on success so callers can render
// the fresh schedule without a re-read.
func (s *Service) compute(ctx context.Context, a *Alert) *models.RouteComputation {
	estimate, err := s.estimator.Estimate(ctx, directions.EstimateRequest{
		Origin:      a.Origin,
		Destination: a.Destination,
		Basis:       directions.Basis(a.TargetBasis),
		TargetTime:  a.TargetTime,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("alert_id", a.ID).Msg("route computation failed")
		return &models.RouteComputation{Success: false, Error: err.Error()}
	}

	schedule, detail := Plan(estimate, a.PreparationMinutes)

	if err := s.repo.UpdateSchedule(ctx, a.ID, schedule); err != nil {
		s.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to persist schedule")
		return &models.RouteComputation{Success: false, Error: err.Error()}
	}

	a.Apply(schedule)

	s.logger.Info().
		Str("alert_id", a.ID).
		Time("rounded_departure", schedule.RoundedDepartureTime).
		Time("wake_up", schedule.WakeUpTime).
		Bool("has_transit", schedule.TransitNotifyTime != nil).
		Msg("notification schedule computed")

	return &models.RouteComputation{
		Success:         true,
		DurationSeconds: estimate.DurationSeconds,
		DistanceMeters:  estimate.DistanceMeters,
		Legs:            toAPILegs(estimate.Legs),
		FirstTransit:    toAPITransitDetail(detail),
	}
}

// validateCreateInput validates the create alert input.
func validateCreateInput(input *models.AlertCreateRequest) []models.FieldError {
	var errs []models.FieldError

	phone := strings.TrimSpace(input.PhoneNumber)
	if phone == "" {
		errs = append(errs, models.FieldError{Field: "phoneNumber", Message: "is required"})
	} else if !phoneE164Regex.MatchString(phone) {
		errs = append(errs, models.FieldError{Field: "phoneNumber", Message: "must be in E.164 format, e.g. +14035551234"})
	}

	if strings.TrimSpace(input.Origin) == "" {
		errs = append(errs, models.FieldError{Field: "origin", Message: "is required"})
	}
	if strings.TrimSpace(input.Destination) == "" {
		errs = append(errs, models.FieldError{Field: "destination", Message: "is required"})
	}

	switch input.TargetBasis {
	case models.TargetBasisDeparture, models.TargetBasisArrival:
	case "":
		errs = append(errs, models.FieldError{Field: "targetBasis", Message: "is required"})
	default:
		errs = append(errs, models.FieldError{Field: "targetBasis", Message: "must be DEPARTURE or ARRIVAL"})
	}

	if time.Time(input.TargetTime).IsZero() {
		errs = append(errs, models.FieldError{Field: "targetTime", Message: "is required"})
	}

	if input.PreparationMinutes < 0 {
		errs = append(errs, models.FieldError{Field: "preparationMinutes", Message: "must not be negative"})
	}

	return errs
}

// toAPIAlert converts a domain Alert to an API Alert.
func toAPIAlert(a *Alert) models.Alert {
	return models.Alert{
		ID:                 a.ID,
		PhoneNumber:        a.PhoneNumber,
		Origin:             a.Origin,
		Destination:        a.Destination,
		TargetBasis:        models.TargetBasis(a.TargetBasis),
		TargetTime:         models.Timestamp(a.TargetTime),
		PreparationMinutes: a.PreparationMinutes,

		ComputedDepartureTime: models.TimestampPtr(a.ComputedDepartureTime),
		ComputedArrivalTime:   models.TimestampPtr(a.ComputedArrivalTime),
		TotalDurationSeconds:  a.TotalDurationSeconds,
		DistanceMeters:        a.DistanceMeters,
		RoundedDepartureTime:  models.TimestampPtr(a.RoundedDepartureTime),
		WakeUpTime:            models.TimestampPtr(a.WakeUpTime),
		FirstTransitStopTime:  models.TimestampPtr(a.FirstTransitStopTime),
		TransitNotifyTime:     models.TimestampPtr(a.TransitNotifyTime),

		WakeUpSent:    a.WakeUpSent,
		DepartureSent: a.DepartureSent,
		TransitSent:   a.TransitSent,

		Status: models.AlertStatus(a.Status),

		CreatedAt: models.Timestamp(a.CreatedAt),
		UpdatedAt: models.Timestamp(a.UpdatedAt),
	}
}

func toAPILegs(legs []directions.RouteLeg) []models.RouteLeg {
	out := make([]models.RouteLeg, 0, len(legs))
	for i := range legs {
		leg := &legs[i]
		out = append(out, models.RouteLeg{
			Mode:         leg.Mode,
			Distance:     leg.Distance,
			Duration:     leg.Duration,
			Instructions: leg.Instructions,
			Transit:      toAPITransitDetail(leg.Transit),
		})
	}
	return out
}

func toAPITransitDetail(d *directions.TransitDetail) *models.TransitDetail {
	if d == nil {
		return nil
	}
	return &models.TransitDetail{
		LineName:      d.LineName,
		LineShortName: d.LineShortName,
		VehicleType:   d.VehicleType,
		DepartureStop: d.DepartureStop,
		ArrivalStop:   d.ArrivalStop,
		NumStops:      d.NumStops,
		Headsign:      d.Headsign,
		DepartureTime: models.TimestampPtr(d.DepartureTime),
		ArrivalTime:   models.TimestampPtr(d.ArrivalTime),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
