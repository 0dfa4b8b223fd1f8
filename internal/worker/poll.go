package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/punctualhq/punctual/internal/alert"
	"github.com/punctualhq/punctual/internal/dispatch"
)

// PollLoop periodically scans for due notifications and dispatches them. Each
// tick runs one pass per notification kind, in dispatch order. Ticks that
// overlap their interval are skipped by the ticker, never stacked.
type PollLoop struct {
	config     PollConfig
	dispatcher *dispatch.Dispatcher
	logger     zerolog.Logger

	metrics *PollMetrics
}

// PollMetrics tracks poll loop statistics.
type PollMetrics struct {
	mu sync.RWMutex

	Ticks           int64
	NotificationsBy map[alert.Kind]int64
	Duplicates      int64
	Failures        int64

	LastTickAt       time.Time
	LastTickDuration time.Duration
}

// PollLoopConfig holds configuration for creating a PollLoop.
type PollLoopConfig struct {
	Config     PollConfig
	Dispatcher *dispatch.Dispatcher
	Logger     zerolog.Logger
}

// NewPollLoop creates a new notification poll loop.
func NewPollLoop(cfg PollLoopConfig) *PollLoop {
	return &PollLoop{
		config:     cfg.Config.withDefaults(),
		dispatcher: cfg.Dispatcher,
		logger:     cfg.Logger,
		metrics: &PollMetrics{
			NotificationsBy: make(map[alert.Kind]int64),
		},
	}
}

// Run blocks, polling until the context is cancelled.
func (l *PollLoop) Run(ctx context.Context) error {
	l.logger.Info().
		Dur("interval", l.config.Interval).
		Msg("starting notification poll loop")

	if l.config.RunImmediately {
		l.Tick(ctx, time.Now())
	}

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("poll loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(ctx, now)
		}
	}
}

// TickResult summarizes one poll tick.
type TickResult struct {
	StartTime time.Time
	Duration  time.Duration
	Passes    []dispatch.PassResult
}

// Sent returns the total notifications delivered during the tick.
func (r TickResult) Sent() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Sent
	}
	return total
}

// Failed returns the total dispatch failures during the tick.
func (r TickResult) Failed() int {
	total := 0
	for _, p := range r.Passes {
		total += p.Failed
	}
	return total
}

// Tick runs one scan over all three notification kinds. Pass order matters:
// an alert whose wake-up and departure times are both in the past gets the
// wake-up first.
func (l *PollLoop) Tick(ctx context.Context, now time.Time) TickResult {
	tickCtx, cancel := context.WithTimeout(ctx, l.config.TickTimeout)
	defer cancel()

	result := TickResult{StartTime: now}
	for _, kind := range alert.Kinds() {
		result.Passes = append(result.Passes, l.dispatcher.RunPass(tickCtx, kind, now))
	}
	result.Duration = time.Since(now)

	l.updateMetrics(result)

	if result.Sent() > 0 || result.Failed() > 0 {
		l.logger.Info().
			Dur("duration", result.Duration).
			Int("sent", result.Sent()).
			Int("failed", result.Failed()).
			Msg("poll tick completed")
	}

	return result
}

func (l *PollLoop) updateMetrics(result TickResult) {
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()

	l.metrics.Ticks++
	l.metrics.LastTickAt = result.StartTime
	l.metrics.LastTickDuration = result.Duration
	for _, p := range result.Passes {
		l.metrics.NotificationsBy[p.Kind] += int64(p.Sent)
		l.metrics.Duplicates += int64(p.Duplicates)
		l.metrics.Failures += int64(p.Failed)
	}
}

// MetricsSnapshot returns the current metrics as a map for the ops endpoints.
func (l *PollLoop) MetricsSnapshot() map[string]interface{} {
	l.metrics.mu.RLock()
	defer l.metrics.mu.RUnlock()

	return map[string]interface{}{
		"ticks":              l.metrics.Ticks,
		"wake_up_sent":       l.metrics.NotificationsBy[alert.KindWakeUp],
		"departure_sent":     l.metrics.NotificationsBy[alert.KindDeparture],
		"transit_sent":       l.metrics.NotificationsBy[alert.KindTransit],
		"duplicates":         l.metrics.Duplicates,
		"failures":           l.metrics.Failures,
		"last_tick_at":       l.metrics.LastTickAt,
		"last_tick_duration": l.metrics.LastTickDuration.String(),
	}
}
