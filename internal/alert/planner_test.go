package alert

import (
	"testing"
	"time"

	"github.com/punctualhq/punctual/internal/directions"
)

func TestRoundToQuarterHour(t *testing.T) {
	day := func(hour, minute, second int) time.Time {
		return time.Date(2025, 6, 2, hour, minute, second, 0, time.UTC)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"exact hour stays", day(8, 0, 0), day(8, 0, 0)},
		{"minute 7 rounds down", day(8, 7, 59), day(8, 0, 0)},
		{"minute 8 rounds to quarter", day(8, 8, 0), day(8, 15, 0)},
		{"minute 22 rounds to quarter", day(8, 22, 30), day(8, 15, 0)},
		{"minute 23 rounds to half", day(8, 23, 0), day(8, 30, 0)},
		{"minute 37 rounds to half", day(8, 37, 0), day(8, 30, 0)},
		{"minute 38 rounds to three quarters", day(8, 38, 0), day(8, 45, 0)},
		{"minute 52 rounds to three quarters", day(8, 52, 59), day(8, 45, 0)},
		{"minute 53 carries into next hour", day(8, 53, 0), day(9, 0, 0)},
		{"minute 59 carries into next hour", day(8, 59, 0), day(9, 0, 0)},
		{"late evening carry crosses midnight", day(23, 55, 0), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
		{"seconds are zeroed", day(10, 15, 42), day(10, 15, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundToQuarterHour(tt.in)
			if !got.Equal(tt.want) {
				t.Errorf("RoundToQuarterHour(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlanArrivalBasis(t *testing.T) {
	// Arrive at 09:00 with a 20.5 minute trip: computed departure 08:39:30,
	// rounded to 08:45, wake-up at 08:15.
	stop := time.Date(2025, 6, 2, 8, 47, 0, 0, time.UTC)
	est := &directions.RouteEstimate{
		DepartureTime:   time.Date(2025, 6, 2, 8, 39, 30, 0, time.UTC),
		ArrivalTime:     time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		DurationSeconds: 1230,
		DistanceMeters:  7400,
		Legs: []directions.RouteLeg{
			{Mode: "WALKING", Distance: "0.3 km"},
			{Mode: "TRANSIT", Transit: &directions.TransitDetail{
				LineShortName: "12",
				DepartureStop: "Elm St",
				DepartureTime: &stop,
			}},
		},
	}

	sched, detail := Plan(est, 30)

	wantRounded := time.Date(2025, 6, 2, 8, 45, 0, 0, time.UTC)
	if !sched.RoundedDepartureTime.Equal(wantRounded) {
		t.Errorf("RoundedDepartureTime = %v, want %v", sched.RoundedDepartureTime, wantRounded)
	}

	wantWake := time.Date(2025, 6, 2, 8, 15, 0, 0, time.UTC)
	if !sched.WakeUpTime.Equal(wantWake) {
		t.Errorf("WakeUpTime = %v, want %v", sched.WakeUpTime, wantWake)
	}

	if detail == nil {
		t.Fatal("expected transit detail, got nil")
	}
	if sched.FirstTransitStopTime == nil || !sched.FirstTransitStopTime.Equal(stop) {
		t.Errorf("FirstTransitStopTime = %v, want %v", sched.FirstTransitStopTime, stop)
	}
	wantNotify := stop.Add(-3 * time.Minute)
	if sched.TransitNotifyTime == nil || !sched.TransitNotifyTime.Equal(wantNotify) {
		t.Errorf("TransitNotifyTime = %v, want %v", sched.TransitNotifyTime, wantNotify)
	}
}

func TestPlanDefaultPreparation(t *testing.T) {
	est := &directions.RouteEstimate{
		DepartureTime: time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC),
	}

	sched, _ := Plan(est, 0)

	wantWake := time.Date(2025, 6, 2, 7, 30, 0, 0, time.UTC)
	if !sched.WakeUpTime.Equal(wantWake) {
		t.Errorf("WakeUpTime = %v, want %v (default 30 minute preparation)", sched.WakeUpTime, wantWake)
	}
}

func TestPlanWalkingOnlyRoute(t *testing.T) {
	est := &directions.RouteEstimate{
		DepartureTime: time.Date(2025, 6, 2, 8, 10, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2025, 6, 2, 8, 25, 0, 0, time.UTC),
		Legs: []directions.RouteLeg{
			{Mode: "WALKING", Distance: "1.1 km"},
		},
	}

	sched, detail := Plan(est, 15)

	if detail != nil {
		t.Errorf("expected no transit detail, got %+v", detail)
	}
	if sched.FirstTransitStopTime != nil {
		t.Errorf("FirstTransitStopTime = %v, want nil", sched.FirstTransitStopTime)
	}
	if sched.TransitNotifyTime != nil {
		t.Errorf("TransitNotifyTime = %v, want nil", sched.TransitNotifyTime)
	}
}

func TestFirstTransitLegSkipsUnknownDeparture(t *testing.T) {
	stop := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	legs := []directions.RouteLeg{
		{Mode: "TRANSIT", Transit: &directions.TransitDetail{LineShortName: "A"}}, // no departure time
		{Mode: "TRANSIT", Transit: &directions.TransitDetail{LineShortName: "B", DepartureTime: &stop}},
	}

	detail := FirstTransitLeg(legs)
	if detail == nil || detail.LineShortName != "B" {
		t.Errorf("FirstTransitLeg = %+v, want leg B", detail)
	}
}

func TestApplyLeavesFlagsUntouched(t *testing.T) {
	a := &Alert{
		ID:            "alrt_x",
		WakeUpSent:    true,
		DepartureSent: true,
		Status:        StatusPending,
	}

	stop := time.Date(2025, 6, 2, 8, 47, 0, 0, time.UTC)
	notify := stop.Add(-3 * time.Minute)
	a.Apply(Schedule{
		ComputedDepartureTime: time.Date(2025, 6, 2, 8, 39, 0, 0, time.UTC),
		ComputedArrivalTime:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		RoundedDepartureTime:  time.Date(2025, 6, 2, 8, 45, 0, 0, time.UTC),
		WakeUpTime:            time.Date(2025, 6, 2, 8, 15, 0, 0, time.UTC),
		FirstTransitStopTime:  &stop,
		TransitNotifyTime:     &notify,
	})

	if !a.WakeUpSent || !a.DepartureSent {
		t.Error("Apply must not clear sent flags")
	}
	if a.Status != StatusPending {
		t.Errorf("Apply must not change status, got %s", a.Status)
	}
	if a.RoundedDepartureTime == nil {
		t.Error("Apply must write derived fields")
	}
}
