package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/punctualhq/punctual/internal/alert"
)

func seedPending(t *testing.T, repo *alert.InMemoryRepository, id string, wake, rounded, transit *time.Time) {
	t.Helper()

	a := &alert.Alert{
		ID:                   id,
		PhoneNumber:          "+15551234567",
		Origin:               "Home",
		Destination:          "Work",
		TargetBasis:          alert.BasisArrival,
		TargetTime:           time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		PreparationMinutes:   30,
		WakeUpTime:           wake,
		RoundedDepartureTime: rounded,
		TransitNotifyTime:    transit,
		Status:               alert.StatusPending,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestListDueSelection(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	now := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

	// Due: wake-up time in the past.
	seedPending(t, repo, "alrt_due", timePtr(now.Add(-5*time.Minute)), nil, nil)
	// Not due: wake-up time in the future.
	seedPending(t, repo, "alrt_future", timePtr(now.Add(5*time.Minute)), nil, nil)
	// Never due: schedule not computed.
	seedPending(t, repo, "alrt_unscheduled", nil, nil, nil)

	due, err := repo.ListDue(context.Background(), alert.KindWakeUp, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 || due[0].ID != "alrt_due" {
		t.Fatalf("expected only alrt_due, got %d alerts", len(due))
	}

	// Trigger exactly at now is due.
	seedPending(t, repo, "alrt_exact", timePtr(now), nil, nil)
	due, err = repo.ListDue(context.Background(), alert.KindWakeUp, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Errorf("expected trigger == now to be due, got %d alerts", len(due))
	}
}

func TestListDueExcludesSentAndTerminal(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	now := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	past := timePtr(now.Add(-time.Minute))

	seedPending(t, repo, "alrt_sentflag", past, nil, nil)
	if err := repo.MarkSent(context.Background(), "alrt_sentflag", alert.KindWakeUp); err != nil {
		t.Fatalf("mark sent: %v", err)
	}

	seedPending(t, repo, "alrt_cancelled", past, nil, nil)
	if err := repo.UpdateStatus(context.Background(), "alrt_cancelled", alert.StatusCancelled); err != nil {
		t.Fatalf("update status: %v", err)
	}

	due, err := repo.ListDue(context.Background(), alert.KindWakeUp, now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("expected no due alerts, got %d", len(due))
	}
}

func TestListDuePerKindTriggers(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	now := time.Date(2025, 6, 2, 8, 50, 0, 0, time.UTC)

	// Wake-up and departure in the past, transit in the future.
	seedPending(t, repo, "alrt_kinds",
		timePtr(now.Add(-35*time.Minute)),
		timePtr(now.Add(-5*time.Minute)),
		timePtr(now.Add(2*time.Minute)),
	)

	for _, tt := range []struct {
		kind alert.Kind
		due  bool
	}{
		{alert.KindWakeUp, true},
		{alert.KindDeparture, true},
		{alert.KindTransit, false},
	} {
		due, err := repo.ListDue(context.Background(), tt.kind, now)
		if err != nil {
			t.Fatalf("list due %s: %v", tt.kind, err)
		}
		if got := len(due) == 1; got != tt.due {
			t.Errorf("kind %s: due = %v, want %v", tt.kind, got, tt.due)
		}
	}
}

func TestMarkSentIdempotence(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	seedPending(t, repo, "alrt_mark", nil, nil, nil)

	if err := repo.MarkSent(context.Background(), "alrt_mark", alert.KindDeparture); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := repo.MarkSent(context.Background(), "alrt_mark", alert.KindDeparture); !errors.Is(err, alert.ErrAlreadySent) {
		t.Errorf("second mark: expected ErrAlreadySent, got %v", err)
	}
	if err := repo.MarkSent(context.Background(), "alrt_missing", alert.KindDeparture); !errors.Is(err, alert.ErrAlertNotFound) {
		t.Errorf("missing alert: expected ErrAlertNotFound, got %v", err)
	}
}

func TestCompleteIfAllSent(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	ctx := context.Background()
	seedPending(t, repo, "alrt_complete", nil, nil, nil)

	// Not complete with only two flags.
	for _, kind := range []alert.Kind{alert.KindWakeUp, alert.KindDeparture} {
		if err := repo.MarkSent(ctx, "alrt_complete", kind); err != nil {
			t.Fatalf("mark %s: %v", kind, err)
		}
	}
	completed, err := repo.CompleteIfAllSent(ctx, "alrt_complete")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed {
		t.Error("alert must not complete with one flag unset")
	}

	if err := repo.MarkSent(ctx, "alrt_complete", alert.KindTransit); err != nil {
		t.Fatalf("mark transit: %v", err)
	}
	completed, err = repo.CompleteIfAllSent(ctx, "alrt_complete")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !completed {
		t.Fatal("alert must complete once all three flags are set")
	}

	stored, err := repo.Get(ctx, "alrt_complete")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != alert.StatusSent {
		t.Errorf("expected status SENT, got %s", stored.Status)
	}

	// Second completion attempt is a no-op.
	completed, err = repo.CompleteIfAllSent(ctx, "alrt_complete")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed {
		t.Error("completion must not fire twice")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	seedPending(t, repo, "alrt_copy", nil, nil, nil)

	a, err := repo.Get(context.Background(), "alrt_copy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	a.Status = alert.StatusFailed

	fresh, err := repo.Get(context.Background(), "alrt_copy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fresh.Status != alert.StatusPending {
		t.Error("mutating a returned alert must not affect the store")
	}
}

func TestUpdateScheduleWritesDerivedFields(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	seedPending(t, repo, "alrt_sched", nil, nil, nil)

	rounded := time.Date(2025, 6, 2, 8, 45, 0, 0, time.UTC)
	err := repo.UpdateSchedule(context.Background(), "alrt_sched", alert.Schedule{
		ComputedDepartureTime: time.Date(2025, 6, 2, 8, 39, 0, 0, time.UTC),
		ComputedArrivalTime:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
		TotalDurationSeconds:  1260,
		DistanceMeters:        7400,
		RoundedDepartureTime:  rounded,
		WakeUpTime:            rounded.Add(-30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("update schedule: %v", err)
	}

	stored, err := repo.Get(context.Background(), "alrt_sched")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.RoundedDepartureTime == nil || !stored.RoundedDepartureTime.Equal(rounded) {
		t.Errorf("RoundedDepartureTime = %v, want %v", stored.RoundedDepartureTime, rounded)
	}
	if stored.TransitNotifyTime != nil {
		t.Error("transit notify time should stay nil for a walking-only schedule")
	}
}

func TestMarkSentConcurrent(t *testing.T) {
	repo := alert.NewInMemoryRepository()
	now := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	seedPending(t, repo, "alrt_race", timePtr(now.Add(-time.Minute)), nil, nil)

	const workers = 16
	errs := make([]error, workers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = repo.MarkSent(context.Background(), "alrt_race", alert.KindWakeUp)
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, alert.ErrAlreadySent):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
	if duplicates != workers-1 {
		t.Errorf("expected %d duplicates, got %d", workers-1, duplicates)
	}

	stored, err := repo.Get(context.Background(), "alrt_race")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !stored.WakeUpSent {
		t.Error("wake-up flag must be set after the race")
	}
}
