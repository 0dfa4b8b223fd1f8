package alert

import (
	"context"
	"time"
)

// Repository defines the interface for alert persistence. The alert store is
// the single source of truth for dispatch decisions; MarkSent must be a
// conditional write so overlapping poll ticks cannot double-send.
type Repository interface {
	// Create persists a new alert.
	Create(ctx context.Context, a *Alert) error

	// Get retrieves an alert by ID. Returns ErrAlertNotFound if missing.
	Get(ctx context.Context, id string) (*Alert, error)

	// List retrieves all alerts, newest first.
	List(ctx context.Context) ([]*Alert, error)

	// ListDue retrieves PENDING alerts whose trigger time for the given kind
	// has passed and whose sent flag is still false. Alerts without a trigger
	// time for the kind never match.
	ListDue(ctx context.Context, kind Kind, now time.Time) ([]*Alert, error)

	// UpdateSchedule writes the derived notification schedule. Sent flags and
	// status are outside its write set so recomputation cannot re-arm a
	// delivered notification.
	UpdateSchedule(ctx context.Context, id string, s Schedule) error

	// MarkSent sets the kind's sent flag, but only if it is still false.
	// Returns ErrAlreadySent when another dispatch won the race, and
	// ErrAlertNotFound for an unknown ID.
	MarkSent(ctx context.Context, id string, kind Kind) error

	// CompleteIfAllSent promotes a PENDING alert to SENT when all three sent
	// flags are true. Returns true if the transition happened.
	CompleteIfAllSent(ctx context.Context, id string) (bool, error)

	// UpdateStatus sets the alert's lifecycle status.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// Delete removes an alert by ID.
	Delete(ctx context.Context, id string) error
}
