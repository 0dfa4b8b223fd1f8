package alert

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
	}
}

// Create persists a new alert.
func (r *InMemoryRepository) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := *a
	r.alerts[a.ID] = &cpy
	return nil
}

// Get retrieves an alert by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}

	// Return a copy
	cpy := *a
	return &cpy, nil
}

// List retrieves all alerts, newest first.
func (r *InMemoryRepository) List(_ context.Context) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alerts := make([]*Alert, 0, len(r.alerts))
	for _, a := range r.alerts {
		cpy := *a
		alerts = append(alerts, &cpy)
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// ListDue retrieves PENDING alerts due for the given kind.
func (r *InMemoryRepository) ListDue(_ context.Context, kind Kind, now time.Time) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var due []*Alert
	for _, a := range r.alerts {
		if a.Status != StatusPending || a.Sent(kind) {
			continue
		}
		trigger := a.TriggerTime(kind)
		if trigger == nil || trigger.After(now) {
			continue
		}
		cpy := *a
		due = append(due, &cpy)
	}

	return due, nil
}

// UpdateSchedule writes the derived notification schedule. Flags and status
// are untouched.
func (r *InMemoryRepository) UpdateSchedule(_ context.Context, id string, s Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}

	a.Apply(s)
	a.UpdatedAt = time.Now()
	return nil
}

// MarkSent sets the kind's sent flag if it is still false.
func (r *InMemoryRepository) MarkSent(_ context.Context, id string, kind Kind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}

	if a.Sent(kind) {
		return ErrAlreadySent
	}

	switch kind {
	case KindWakeUp:
		a.WakeUpSent = true
	case KindDeparture:
		a.DepartureSent = true
	case KindTransit:
		a.TransitSent = true
	}
	a.UpdatedAt = time.Now()
	return nil
}

// CompleteIfAllSent promotes a PENDING alert to SENT when all flags are set.
func (r *InMemoryRepository) CompleteIfAllSent(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return false, ErrAlertNotFound
	}

	if a.Status != StatusPending || !a.AllSent() {
		return false, nil
	}

	a.Status = StatusSent
	a.UpdatedAt = time.Now()
	return true, nil
}

// UpdateStatus sets the alert's lifecycle status.
func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}

	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

// Delete removes an alert by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[id]; !ok {
		return ErrAlertNotFound
	}

	delete(r.alerts, id)
	return nil
}
