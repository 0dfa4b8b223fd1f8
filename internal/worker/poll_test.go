package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/directions"
	"github.com/punctualhq/punctual/internal/dispatch"
	"github.com/punctualhq/punctual/internal/notify"
)

type fakeEstimator struct {
	estimate *directions.RouteEstimate
}

func (f *fakeEstimator) Estimate(_ context.Context, _ directions.EstimateRequest) (*directions.RouteEstimate, error) {
	return f.estimate, nil
}

type recordingSender struct {
	mu     sync.Mutex
	bodies []string
}

func (s *recordingSender) Send(_ context.Context, _, body string) (*notify.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, body)
	return &notify.SendResult{MessageID: "SM1", Status: "queued"}, nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func routeEstimate() *directions.RouteEstimate {
	dep := time.Date(2025, 6, 2, 8, 52, 0, 0, time.UTC)
	arr := time.Date(2025, 6, 2, 9, 14, 0, 0, time.UTC)
	return &directions.RouteEstimate{
		DepartureTime:   time.Date(2025, 6, 2, 8, 39, 0, 0, time.UTC),
		ArrivalTime:     time.Date(2025, 6, 2, 9, 20, 0, 0, time.UTC),
		DurationSeconds: 2460,
		Legs: []directions.RouteLeg{
			{Mode: "WALKING", Distance: "0.4 km", Duration: "5 mins"},
			{
				Mode: "TRANSIT",
				Transit: &directions.TransitDetail{
					LineName:      "Green Line",
					DepartureStop: "Main St Station",
					ArrivalStop:   "Central Station",
					DepartureTime: &dep,
					ArrivalTime:   &arr,
				},
			},
		},
	}
}

func newTestLoop(t *testing.T, cfg PollConfig) (*PollLoop, *alert.InMemoryRepository, *recordingSender) {
	t.Helper()

	repo := alert.NewInMemoryRepository()
	sender := &recordingSender{}
	notifier := notify.NewService(notify.ServiceConfig{Sender: sender, Logger: zerolog.Nop()})
	dispatcher := dispatch.NewDispatcher(dispatch.DispatcherConfig{
		Repo:      repo,
		Estimator: &fakeEstimator{estimate: routeEstimate()},
		Notifier:  notifier,
		Logger:    zerolog.Nop(),
	})

	loop := NewPollLoop(PollLoopConfig{
		Config:     cfg,
		Dispatcher: dispatcher,
		Logger:     zerolog.Nop(),
	})
	return loop, repo, sender
}

func seedScheduledAlert(t *testing.T, repo *alert.InMemoryRepository, id string) {
	t.Helper()

	dep := time.Date(2025, 6, 2, 8, 39, 0, 0, time.UTC)
	rounded := time.Date(2025, 6, 2, 8, 45, 0, 0, time.UTC)
	wake := time.Date(2025, 6, 2, 8, 15, 0, 0, time.UTC)
	arr := time.Date(2025, 6, 2, 9, 20, 0, 0, time.UTC)
	stop := time.Date(2025, 6, 2, 8, 52, 0, 0, time.UTC)
	notifyAt := time.Date(2025, 6, 2, 8, 49, 0, 0, time.UTC)

	require.NoError(t, repo.Create(context.Background(), &alert.Alert{
		ID:                    id,
		PhoneNumber:           "+15551234567",
		Origin:                "Home",
		Destination:           "Central Station",
		TargetBasis:           alert.BasisArrival,
		TargetTime:            arr,
		PreparationMinutes:    30,
		ComputedDepartureTime: &dep,
		ComputedArrivalTime:   &arr,
		RoundedDepartureTime:  &rounded,
		WakeUpTime:            &wake,
		FirstTransitStopTime:  &stop,
		TransitNotifyTime:     &notifyAt,
		Status:                alert.StatusPending,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}))
}

func TestTickRunsAllThreePasses(t *testing.T) {
	loop, repo, sender := newTestLoop(t, DefaultPollConfig())
	seedScheduledAlert(t, repo, "alrt_tick1")

	// All three trigger times are in the past.
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	result := loop.Tick(context.Background(), now)

	require.Len(t, result.Passes, 3)
	assert.Equal(t, alert.KindWakeUp, result.Passes[0].Kind)
	assert.Equal(t, alert.KindDeparture, result.Passes[1].Kind)
	assert.Equal(t, alert.KindTransit, result.Passes[2].Kind)
	assert.Equal(t, 3, result.Sent())
	assert.Equal(t, 3, sender.count())

	stored, err := repo.Get(context.Background(), "alrt_tick1")
	require.NoError(t, err)
	assert.True(t, stored.AllSent())
	assert.Equal(t, alert.StatusSent, stored.Status)
}

func TestTickOnlyWakeUpDue(t *testing.T) {
	loop, repo, sender := newTestLoop(t, DefaultPollConfig())
	seedScheduledAlert(t, repo, "alrt_tick2")

	now := time.Date(2025, 6, 2, 8, 20, 0, 0, time.UTC)
	result := loop.Tick(context.Background(), now)

	assert.Equal(t, 1, result.Sent())
	assert.Equal(t, 1, sender.count())

	stored, err := repo.Get(context.Background(), "alrt_tick2")
	require.NoError(t, err)
	assert.True(t, stored.WakeUpSent)
	assert.False(t, stored.DepartureSent)
	assert.False(t, stored.TransitSent)
	assert.Equal(t, alert.StatusPending, stored.Status)
}

func TestTickIsIdempotent(t *testing.T) {
	loop, repo, sender := newTestLoop(t, DefaultPollConfig())
	seedScheduledAlert(t, repo, "alrt_tick3")

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	first := loop.Tick(context.Background(), now)
	second := loop.Tick(context.Background(), now.Add(30*time.Second))

	assert.Equal(t, 3, first.Sent())
	assert.Equal(t, 0, second.Sent())
	assert.Equal(t, 3, sender.count())

	stored, err := repo.Get(context.Background(), "alrt_tick3")
	require.NoError(t, err)
	assert.Equal(t, alert.StatusSent, stored.Status)
}

func TestTickUpdatesMetrics(t *testing.T) {
	loop, repo, _ := newTestLoop(t, DefaultPollConfig())
	seedScheduledAlert(t, repo, "alrt_tick4")

	loop.Tick(context.Background(), time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))

	snapshot := loop.MetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["ticks"])
	assert.Equal(t, int64(1), snapshot["wake_up_sent"])
	assert.Equal(t, int64(1), snapshot["departure_sent"])
	assert.Equal(t, int64(1), snapshot["transit_sent"])
	assert.Equal(t, int64(0), snapshot["failures"])
}

func TestRunStopsOnContextCancel(t *testing.T) {
	loop, _, _ := newTestLoop(t, PollConfig{
		Interval:       10 * time.Millisecond,
		TickTimeout:    5 * time.Millisecond,
		RunImmediately: false,
	})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after cancel")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := PollConfig{}.withDefaults()
	assert.Equal(t, 30*time.Second, cfg.Interval)
	assert.Equal(t, 25*time.Second, cfg.TickTimeout)
}
