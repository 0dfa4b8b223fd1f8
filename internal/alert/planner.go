package alert

import (
	"time"

	"github.com/punctualhq/punctual/internal/directions"
)

// TransitNotifyLead is the fixed head start before the first transit vehicle
// reaches its stop.
const TransitNotifyLead = 3 * time.Minute

// Schedule is the set of derived notification instants computed from one
// route estimate. FirstTransitStopTime and TransitNotifyTime stay nil when
// the route has no transit leg with a known departure; such alerts are never
// due for the transit kind.
type Schedule struct {
	ComputedDepartureTime time.Time
	ComputedArrivalTime   time.Time
	TotalDurationSeconds  int
	DistanceMeters        int
	RoundedDepartureTime  time.Time
	WakeUpTime            time.Time
	FirstTransitStopTime  *time.Time
	TransitNotifyTime     *time.Time
}

// Plan derives the notification schedule from a route estimate. It is pure:
// no I/O, no mutation of the estimate. The returned TransitDetail is the
// first transit leg used for the transit notification, or nil when the route
// has none.
func Plan(est *directions.RouteEstimate, preparationMinutes int) (Schedule, *directions.TransitDetail) {
	if preparationMinutes == 0 {
		preparationMinutes = DefaultPreparationMinutes
	}

	rounded := RoundToQuarterHour(est.DepartureTime)

	sched := Schedule{
		ComputedDepartureTime: est.DepartureTime,
		ComputedArrivalTime:   est.ArrivalTime,
		TotalDurationSeconds:  est.DurationSeconds,
		DistanceMeters:        est.DistanceMeters,
		RoundedDepartureTime:  rounded,
		WakeUpTime:            rounded.Add(-time.Duration(preparationMinutes) * time.Minute),
	}

	detail := FirstTransitLeg(est.Legs)
	if detail != nil {
		stop := *detail.DepartureTime
		notify := stop.Add(-TransitNotifyLead)
		sched.FirstTransitStopTime = &stop
		sched.TransitNotifyTime = &notify
	}

	return sched, detail
}

// RoundToQuarterHour rounds t to the nearest quarter-hour mark using
// half-open minute bands: <8 rounds down to :00, 8-22 to :15, 23-37 to :30,
// 38-52 to :45, and 53+ carries into the next hour. Seconds and sub-second
// components are zeroed.
func RoundToQuarterHour(t time.Time) time.Time {
	minute := t.Minute()
	switch {
	case minute < 8:
		minute = 0
	case minute < 23:
		minute = 15
	case minute < 38:
		minute = 30
	case minute < 53:
		minute = 45
	default:
		t = t.Add(time.Hour)
		minute = 0
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, t.Location())
}

// FirstTransitLeg scans legs in route order and returns the first one
// carrying transit detail with a known departure timestamp, or nil.
func FirstTransitLeg(legs []directions.RouteLeg) *directions.TransitDetail {
	for i := range legs {
		detail := legs[i].Transit
		if detail != nil && detail.DepartureTime != nil {
			return detail
		}
	}
	return nil
}

// Apply writes the derived schedule onto the alert. Sent flags and status are
// deliberately not part of the write set: a recomputation must never re-arm
// an already delivered notification kind.
func (a *Alert) Apply(s Schedule) {
	dep := s.ComputedDepartureTime
	arr := s.ComputedArrivalTime
	dur := s.TotalDurationSeconds
	dist := s.DistanceMeters
	rounded := s.RoundedDepartureTime
	wake := s.WakeUpTime

	a.ComputedDepartureTime = &dep
	a.ComputedArrivalTime = &arr
	a.TotalDurationSeconds = &dur
	a.DistanceMeters = &dist
	a.RoundedDepartureTime = &rounded
	a.WakeUpTime = &wake
	a.FirstTransitStopTime = s.FirstTransitStopTime
	a.TransitNotifyTime = s.TransitNotifyTime
}
