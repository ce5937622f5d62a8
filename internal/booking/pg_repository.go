package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var email, phone *string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&email,
		&phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	c.Email = email
	c.Phone = phone
	return &c, nil
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanService(row pgx.Row) (*Service, error) {
	var s Service

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Name,
		&s.DurationMinutes,
		&s.PriceCents,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var notes *string

	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.ProviderID,
		&b.ServiceID,
		&b.Start,
		&b.DurationMinutes,
		&b.Status,
		&notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Notes = notes
	return &b, nil
}

const bookingColumns = `id, client_id, provider_id, service_id, start_time, duration_minutes, status, notes, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetClientByID(ctx context.Context, id uuid.UUID) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id)
	return scanClient(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, provider_id, name, duration_minutes, price_cents, active, created_at, updated_at
		FROM services
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ListBlockingBookings(ctx context.Context, providerID uuid.UUID, from time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND start_time + (duration_minutes * interval '1 minute') > $2
		ORDER BY start_time ASC
	`, providerID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CountOverlapping uses the half-open interval test: an existing booking
// conflicts iff it starts before the candidate ends and ends after the
// candidate starts. Back-to-back bookings never match.
func (r *PgRepository) CountOverlapping(ctx context.Context, providerID uuid.UUID, start, end time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM bookings
		WHERE provider_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND start_time < $3
		  AND start_time + (duration_minutes * interval '1 minute') > $2
	`, providerID, start, end).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PgRepository) InsertBooking(ctx context.Context, b *Booking) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, client_id, provider_id, service_id, start_time, duration_minutes, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+bookingColumns+`
	`, b.ID, b.ClientID, b.ProviderID, b.ServiceID, b.Start, b.DurationMinutes, b.Status, b.Notes)

	created, err := scanBooking(row)
	if err != nil {
		// The bookings_no_overlap exclusion constraint is the safety net
		// behind the provider lock; a violation means the slot was lost.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, to, from)

	return scanBooking(row)
}

func (r *PgRepository) DeleteScheduledBooking(ctx context.Context, id, clientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM bookings
		WHERE id = $1
		  AND client_id = $2
		  AND status = 'scheduled'
	`, id, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgRepository) ListBookingsByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE client_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
