package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, phone_number, origin_text, destination_text,
	target_basis, target_time, preparation_minutes,
	computed_departure_time, computed_arrival_time,
	total_duration_seconds, distance_meters,
	rounded_departure_time, wake_up_time,
	first_transit_stop_time, transit_notify_time,
	wake_up_sent, departure_sent, transit_sent,
	status, created_at, updated_at
`

// sentFlagColumn maps a notification kind to its flag column. Kind values
// come from the Kind constants, never from user input.
func sentFlagColumn(kind Kind) string {
	switch kind {
	case KindWakeUp:
		return "wake_up_sent"
	case KindDeparture:
		return "departure_sent"
	case KindTransit:
		return "transit_sent"
	}
	return ""
}

// triggerTimeColumn maps a notification kind to its trigger-time column.
func triggerTimeColumn(kind Kind) string {
	switch kind {
	case KindWakeUp:
		return "wake_up_time"
	case KindDeparture:
		return "rounded_departure_time"
	case KindTransit:
		return "transit_notify_time"
	}
	return ""
}

// Create persists a new alert.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	query := `
		INSERT INTO transit_alerts (
			id, phone_number, origin_text, destination_text,
			target_basis, target_time, preparation_minutes,
			computed_departure_time, computed_arrival_time,
			total_duration_seconds, distance_meters,
			rounded_departure_time, wake_up_time,
			first_transit_stop_time, transit_notify_time,
			wake_up_sent, departure_sent, transit_sent,
			status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PhoneNumber, a.Origin, a.Destination,
		a.TargetBasis, a.TargetTime, a.PreparationMinutes,
		a.ComputedDepartureTime, a.ComputedArrivalTime,
		a.TotalDurationSeconds, a.DistanceMeters,
		a.RoundedDepartureTime, a.WakeUpTime,
		a.FirstTransitStopTime, a.TransitNotifyTime,
		a.WakeUpSent, a.DepartureSent, a.TransitSent,
		a.Status, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

// Get retrieves an alert by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM transit_alerts WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	a, err := scanAlert(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

// List retrieves all alerts, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM transit_alerts ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// ListDue retrieves PENDING alerts due for the given kind. Relies on the
// partial index per (status, flag, trigger time).
func (r *PostgresRepository) ListDue(ctx context.Context, kind Kind, now time.Time) ([]*Alert, error) {
	flagCol := sentFlagColumn(kind)
	timeCol := triggerTimeColumn(kind)
	if flagCol == "" || timeCol == "" {
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}

	query := fmt.Sprintf(
		`SELECT %s FROM transit_alerts
		 WHERE status = $1 AND %s = FALSE AND %s IS NOT NULL AND %s <= $2`,
		alertColumns, flagCol, timeCol, timeCol,
	)

	rows, err := r.pool.Query(ctx, query, StatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// UpdateSchedule writes the derived notification schedule. The write set
// deliberately excludes the sent flags and status.
func (r *PostgresRepository) UpdateSchedule(ctx context.Context, id string, s Schedule) error {
	query := `
		UPDATE transit_alerts SET
			computed_departure_time = $2,
			computed_arrival_time = $3,
			total_duration_seconds = $4,
			distance_meters = $5,
			rounded_departure_time = $6,
			wake_up_time = $7,
			first_transit_stop_time = $8,
			transit_notify_time = $9,
			updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		s.ComputedDepartureTime, s.ComputedArrivalTime,
		s.TotalDurationSeconds, s.DistanceMeters,
		s.RoundedDepartureTime, s.WakeUpTime,
		s.FirstTransitStopTime, s.TransitNotifyTime,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MarkSent sets the kind's sent flag with a compare-and-set: the update only
// matches while the flag is still false, so concurrent dispatchers cannot
// both win.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string, kind Kind) error {
	flagCol := sentFlagColumn(kind)
	if flagCol == "" {
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	query := fmt.Sprintf(
		`UPDATE transit_alerts SET %s = TRUE, updated_at = now()
		 WHERE id = $1 AND %s = FALSE`,
		flagCol, flagCol,
	)

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Lost the CAS or the alert is gone; tell the caller which.
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transit_alerts WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrAlertNotFound
	}
	return ErrAlreadySent
}

// CompleteIfAllSent promotes a PENDING alert to SENT when all three flags are
// true. The condition lives in the statement so the check and the transition
// are atomic.
func (r *PostgresRepository) CompleteIfAllSent(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE transit_alerts SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		  AND wake_up_sent AND departure_sent AND transit_sent
	`

	tag, err := r.pool.Exec(ctx, query, id, StatusSent, StatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus sets the alert's lifecycle status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transit_alerts SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Delete removes an alert by ID.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transit_alerts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// scanAlert scans one alert row.
func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID, &a.PhoneNumber, &a.Origin, &a.Destination,
		&a.TargetBasis, &a.TargetTime, &a.PreparationMinutes,
		&a.ComputedDepartureTime, &a.ComputedArrivalTime,
		&a.TotalDurationSeconds, &a.DistanceMeters,
		&a.RoundedDepartureTime, &a.WakeUpTime,
		&a.FirstTransitStopTime, &a.TransitNotifyTime,
		&a.WakeUpSent, &a.DepartureSent, &a.TransitSent,
		&a.Status, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAlerts(rows pgx.Rows) ([]*Alert, error) {
	var alerts []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return alerts, nil
}
