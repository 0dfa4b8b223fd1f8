package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/directions"
	"github.com/punctualhq/punctual/internal/telemetry"
)

// ServiceConfig holds configuration for the notification service.
type ServiceConfig struct {
	// Sender is the delivery backend.
	Sender Sender

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records delivery call statistics (optional).
	Metrics *telemetry.ProviderMetrics
}

// Service formats and delivers the three alert notification kinds.
type Service struct {
	sender  Sender
	logger  zerolog.Logger
	metrics *telemetry.ProviderMetrics
}

// NewService creates a new notification service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		sender:  cfg.Sender,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// SendWakeUp delivers the wake-up notification.
func (s *Service) SendWakeUp(ctx context.Context, to string, departureTime time.Time, destination string) (*SendResult, error) {
	return s.send(ctx, to, WakeUpMessage(departureTime, destination), "wake_up")
}

// SendDeparture delivers the time-to-leave notification with a route summary.
func (s *Service) SendDeparture(ctx context.Context, to, destination string, arrivalTime time.Time, legs []directions.RouteLeg) (*SendResult, error) {
	return s.send(ctx, to, DepartureMessage(destination, arrivalTime, legs), "departure")
}

// SendTransitArrival delivers the transit-arriving-soon notification.
func (s *Service) SendTransitArrival(ctx context.Context, to string, detail *directions.TransitDetail, minutesUntil int) (*SendResult, error) {
	return s.send(ctx, to, TransitArrivalMessage(detail, minutesUntil), "transit")
}

// SendRaw delivers an arbitrary message. Used by the test-message endpoint.
func (s *Service) SendRaw(ctx context.Context, to, body string) (*SendResult, error) {
	return s.send(ctx, to, body, "raw")
}

func (s *Service) send(ctx context.Context, to, body, kind string) (*SendResult, error) {
	start := time.Now()
	result, err := s.sender.Send(ctx, to, body)
	if s.metrics != nil {
		s.metrics.RecordRequest("sms", kind, time.Since(start), err)
	}
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("kind", kind).
			Str("to", to).
			Msg("notification delivery failed")
		return nil, err
	}

	s.logger.Info().
		Str("kind", kind).
		Str("to", to).
		Str("message_id", result.MessageID).
		Msg("notification delivered")

	return result, nil
}
