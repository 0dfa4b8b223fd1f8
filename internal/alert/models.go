// Package alert provides the transit alert entity, notification planning,
// and alert persistence.
package alert

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrAlreadySent   = errors.New("notification already sent")
)

// TargetBasis determines how the target time anchors the route computation.
type TargetBasis string

const (
	// BasisDeparture means the user leaves at the target time.
	BasisDeparture TargetBasis = "DEPARTURE"
	// BasisArrival means the user must arrive by the target time.
	BasisArrival TargetBasis = "ARRIVAL"
)

// Status is the overall lifecycle state of an alert.
type Status string

const (
	// StatusPending is the initial state; the alert is eligible for dispatch.
	StatusPending Status = "PENDING"
	// StatusSent is terminal, reached only when all three notifications went out.
	StatusSent Status = "SENT"
	// StatusFailed marks an unrecoverable dispatch error. Advisory; the core
	// never sets it automatically.
	StatusFailed Status = "FAILED"
	// StatusCancelled is terminal and user-initiated.
	StatusCancelled Status = "CANCELLED"
)

// Kind identifies one of the three notification kinds an alert carries.
type Kind string

const (
	KindWakeUp    Kind = "wake_up"
	KindDeparture Kind = "departure"
	KindTransit   Kind = "transit"
)

// Kinds lists all notification kinds in dispatch order.
func Kinds() []Kind {
	return []Kind{KindWakeUp, KindDeparture, KindTransit}
}

// DefaultPreparationMinutes is the lead time between waking up and leaving
// when the caller does not specify one.
const DefaultPreparationMinutes = 30

// Alert is a scheduled trip notification. Input fields are immutable after
// creation; derived fields are written only by a full recomputation and are
// nil until the first route estimate succeeds.
type Alert struct {
	ID string

	// Input fields.
	PhoneNumber        string
	Origin             string
	Destination        string
	TargetBasis        TargetBasis
	TargetTime         time.Time
	PreparationMinutes int

	// Derived from the route estimate.
	ComputedDepartureTime *time.Time
	ComputedArrivalTime   *time.Time
	TotalDurationSeconds  *int
	DistanceMeters        *int
	RoundedDepartureTime  *time.Time
	WakeUpTime            *time.Time
	FirstTransitStopTime  *time.Time
	TransitNotifyTime     *time.Time

	// Per-kind sent flags. Monotonic: once true they are never cleared,
	// not even by recomputation.
	WakeUpSent    bool
	DepartureSent bool
	TransitSent   bool

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sent reports whether the given notification kind has been delivered.
func (a *Alert) Sent(kind Kind) bool {
	switch kind {
	case KindWakeUp:
		return a.WakeUpSent
	case KindDeparture:
		return a.DepartureSent
	case KindTransit:
		return a.TransitSent
	}
	return false
}

// TriggerTime returns the instant at which the given kind becomes due, or nil
// when the kind is inapplicable (no transit leg) or not yet computed.
func (a *Alert) TriggerTime(kind Kind) *time.Time {
	switch kind {
	case KindWakeUp:
		return a.WakeUpTime
	case KindDeparture:
		return a.RoundedDepartureTime
	case KindTransit:
		return a.TransitNotifyTime
	}
	return nil
}

// AllSent reports whether every notification kind has been delivered.
func (a *Alert) AllSent() bool {
	return a.WakeUpSent && a.DepartureSent && a.TransitSent
}
