package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/alert"
)

// PubSubHandler handles Pub/Sub messages for the scheduler. Upstream systems
// publish recalculation jobs when transit conditions change so that affected
// alerts pick up fresh route timings before their notifications fire.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	alerts           *alert.Service
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Alerts           *alert.Service
	Logger           zerolog.Logger
}

// JobMessage represents a scheduler job message.
type JobMessage struct {
	JobType string `json:"job_type"`
	AlertID string `json:"alert_id,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		alerts:           cfg.Alerts,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	var job JobMessage
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		msg.Nack()
		return
	}

	var err error
	switch job.JobType {
	case "recalculate":
		err = h.handleRecalculate(ctx, job)
	default:
		logger.Warn().Str("job_type", job.JobType).Msg("unknown job type")
		msg.Ack() // Ack unknown messages to prevent redelivery
		return
	}

	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", job.JobType).
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}

func (h *PubSubHandler) handleRecalculate(ctx context.Context, job JobMessage) error {
	if job.AlertID == "" {
		return errors.New("recalculate job missing alert_id")
	}

	h.logger.Info().Str("alert_id", job.AlertID).Msg("recalculating alert schedule")

	_, err := h.alerts.Recalculate(ctx, job.AlertID)
	if errors.Is(err, alert.ErrAlertNotFound) || errors.Is(err, alert.ErrAlertTerminal) {
		// The alert is gone or finished; redelivery cannot help.
		h.logger.Warn().Err(err).Str("alert_id", job.AlertID).Msg("skipping recalculation")
		return nil
	}
	return err
}
