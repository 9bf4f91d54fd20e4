package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation

	err := row.Scan(
		&r.ID,
		&r.ProviderID,
		&r.CustomerRef,
		&r.Date,
		&r.Time,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]Reservation, error) {
	defer rows.Close()

	var result []Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider

	err := r.pool.QueryRow(ctx, `
		SELECT id, name
		FROM providers
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_time, end_time
		FROM provider_windows
		WHERE provider_id = $1
		ORDER BY day_of_week
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var w Window
		if err := rows.Scan(&w.DayOfWeek, &w.StartTime, &w.EndTime); err != nil {
			return nil, err
		}
		p.Windows = append(p.Windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *PgRepository) ListBlockingReservations(ctx context.Context, providerID uuid.UUID) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, customer_ref, slot_date, slot_time, status, created_at
		FROM reservations
		WHERE provider_id = $1
		  AND status IN ('held', 'confirmed')
	`, providerID)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PgRepository) GetReservationBySlot(ctx context.Context, providerID uuid.UUID, date, slotTime string) (*Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, customer_ref, slot_date, slot_time, status, created_at
		FROM reservations
		WHERE provider_id = $1 AND slot_date = $2 AND slot_time = $3
	`, providerID, date, slotTime)
	return scanReservation(row)
}

func (r *PgRepository) GetReservationByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, customer_ref, slot_date, slot_time, status, created_at
		FROM reservations
		WHERE id = $1
	`, id)
	return scanReservation(row)
}

func (r *PgRepository) CreateReservation(ctx context.Context, providerID uuid.UUID, date, slotTime, customerRef string) (*Reservation, error) {
	id := uuid.New()

	// The unique constraint on (provider_id, slot_date, slot_time)
	// makes the conflict check and the insert a single atomic step, so
	// concurrent creates for the same slot cannot both win, even across
	// process instances.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reservations (id, provider_id, customer_ref, slot_date, slot_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'held', now())
		ON CONFLICT (provider_id, slot_date, slot_time) DO NOTHING
		RETURNING id, provider_id, customer_ref, slot_date, slot_time, status, created_at
	`, id, providerID, customerRef, date, slotTime)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			// DO NOTHING swallowed the insert: the slot is taken.
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return res, nil
}

func (r *PgRepository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reservations
		SET status = $2
		WHERE id = $1
		  AND status = $3
		RETURNING id, provider_id, customer_ref, slot_date, slot_time, status, created_at
	`, id, to, from)

	return scanReservation(row)
}

func (r *PgRepository) FindExpiredUnconfirmed(ctx context.Context, cutoff time.Time) ([]Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, customer_ref, slot_date, slot_time, status, created_at
		FROM reservations
		WHERE status IN ('held', 'expired')
		  AND created_at <= $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PgRepository) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM reservations
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	return nil
}

var _ Repository = (*PgRepository)(nil)
