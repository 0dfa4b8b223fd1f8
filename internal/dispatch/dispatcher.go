// Package dispatch decides which alerts are due and delivers their
// notifications exactly once under repeated polling.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/directions"
	"github.com/punctualhq/punctual/internal/notify"
)

// Dispatch errors.
var (
	// ErrNotPending is returned when the alert left the PENDING state between
	// selection and dispatch (e.g. user cancellation).
	ErrNotPending = errors.New("alert is no longer pending")
	// ErrNoTransitInfo is returned when a transit notification has no
	// resolvable transit leg.
	ErrNoTransitInfo = errors.New("no transit information found")
	// ErrNotScheduled is returned when the kind's trigger time was never
	// computed for this alert.
	ErrNotScheduled = errors.New("notification kind not scheduled")
)

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Repo      alert.Repository
	Estimator directions.Estimator
	Notifier  *notify.Service
	Logger    zerolog.Logger
}

// Dispatcher delivers due notifications. Delivery is idempotent per
// (alert, kind): the sent flag is re-checked against the store immediately
// before sending and set with a conditional write afterwards, so overlapping
// poll ticks or retried calls produce at most one send.
type Dispatcher struct {
	repo      alert.Repository
	estimator directions.Estimator
	notifier  *notify.Service
	logger    zerolog.Logger
}

// NewDispatcher creates a new dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		repo:      cfg.Repo,
		estimator: cfg.Estimator,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
	}
}

// PassResult summarizes one selector+dispatch pass for a notification kind.
type PassResult struct {
	Kind       alert.Kind
	Due        int
	Sent       int
	Duplicates int
	Failed     int
}

// RunPass selects all alerts due for the given kind and dispatches each one.
// One alert's failure or panic never aborts the rest of the pass; the alert
// stays PENDING and is retried on the next tick.
func (d *Dispatcher) RunPass(ctx context.Context, kind alert.Kind, now time.Time) PassResult {
	result := PassResult{Kind: kind}

	due, err := d.repo.ListDue(ctx, kind, now)
	if err != nil {
		d.logger.Error().Err(err).Str("kind", string(kind)).Msg("due alert query failed")
		return result
	}
	result.Due = len(due)

	if len(due) > 0 {
		d.logger.Info().Str("kind", string(kind)).Int("due", len(due)).Msg("dispatching due notifications")
	}

	for _, a := range due {
		err := d.dispatchIsolated(ctx, kind, a)
		switch {
		case err == nil:
			result.Sent++
			d.logger.Info().Str("kind", string(kind)).Str("alert_id", a.ID).Msg("notification sent")
		case errors.Is(err, alert.ErrAlreadySent):
			result.Duplicates++
		case errors.Is(err, ErrNotPending):
			// Cancelled between selection and dispatch; nothing to do.
		default:
			result.Failed++
			d.logger.Error().Err(err).Str("kind", string(kind)).Str("alert_id", a.ID).Msg("notification dispatch failed")
		}
	}

	return result
}

// dispatchIsolated wraps Dispatch with panic recovery so a misbehaving alert
// cannot take down the poll pass.
func (d *Dispatcher) dispatchIsolated(ctx context.Context, kind alert.Kind, a *alert.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()
	return d.Dispatch(ctx, kind, a)
}

// Dispatch delivers one notification. It re-reads the alert so the decision
// is made against current store state, not the possibly stale selection
// snapshot. Returns alert.ErrAlreadySent when the notification already went
// out; that is a benign outcome, not a failure.
func (d *Dispatcher) Dispatch(ctx context.Context, kind alert.Kind, a *alert.Alert) error {
	fresh, err := d.repo.Get(ctx, a.ID)
	if err != nil {
		return err
	}
	if fresh.Status != alert.StatusPending {
		return ErrNotPending
	}
	if fresh.Sent(kind) {
		return alert.ErrAlreadySent
	}

	switch kind {
	case alert.KindWakeUp:
		err = d.sendWakeUp(ctx, fresh)
	case alert.KindDeparture:
		err = d.sendDeparture(ctx, fresh)
	case alert.KindTransit:
		err = d.sendTransit(ctx, fresh)
	default:
		return fmt.Errorf("unknown notification kind %q", kind)
	}
	if err != nil {
		return err
	}

	// Delivery succeeded; claim the flag. Losing the conditional write means
	// a concurrent dispatcher also delivered - report it as a duplicate.
	if err := d.repo.MarkSent(ctx, fresh.ID, kind); err != nil {
		if errors.Is(err, alert.ErrAlreadySent) {
			d.logger.Warn().Str("kind", string(kind)).Str("alert_id", fresh.ID).
				Msg("duplicate delivery detected after send")
		}
		return err
	}

	if kind == alert.KindTransit {
		completed, err := d.repo.CompleteIfAllSent(ctx, fresh.ID)
		if err != nil {
			return err
		}
		if completed {
			d.logger.Info().Str("alert_id", fresh.ID).Msg("all notifications sent, alert completed")
		}
	}

	return nil
}

func (d *Dispatcher) sendWakeUp(ctx context.Context, a *alert.Alert) error {
	if a.RoundedDepartureTime == nil {
		return ErrNotScheduled
	}
	_, err := d.notifier.SendWakeUp(ctx, a.PhoneNumber, *a.RoundedDepartureTime, a.Destination)
	return err
}

func (d *Dispatcher) sendDeparture(ctx context.Context, a *alert.Alert) error {
	if a.ComputedArrivalTime == nil {
		return ErrNotScheduled
	}

	// The leg summary is rebuilt from a fresh estimate; the directions
	// service's short cache keeps repeated lookups within a tick consistent.
	estimate, err := d.estimate(ctx, a)
	if err != nil {
		return err
	}

	_, err = d.notifier.SendDeparture(ctx, a.PhoneNumber, a.Destination, *a.ComputedArrivalTime, estimate.Legs)
	return err
}

func (d *Dispatcher) sendTransit(ctx context.Context, a *alert.Alert) error {
	estimate, err := d.estimate(ctx, a)
	if err != nil {
		return err
	}

	detail := alert.FirstTransitLeg(estimate.Legs)
	if detail == nil {
		return ErrNoTransitInfo
	}

	minutes := int(alert.TransitNotifyLead / time.Minute)
	_, err = d.notifier.SendTransitArrival(ctx, a.PhoneNumber, detail, minutes)
	return err
}

func (d *Dispatcher) estimate(ctx context.Context, a *alert.Alert) (*directions.RouteEstimate, error) {
	return d.estimator.Estimate(ctx, directions.EstimateRequest{
		Origin:      a.Origin,
		Destination: a.Destination,
		Basis:       directions.Basis(a.TargetBasis),
		TargetTime:  a.TargetTime,
	})
}
