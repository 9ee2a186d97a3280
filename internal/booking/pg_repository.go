package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/appointment-booking/internal/db"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

func (r *PgRepository) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

// Helpers

const microsPerMinute = int64(time.Minute / time.Microsecond)

func pgTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func fromPgTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / microsPerMinute)
}

const serviceColumns = `id, name, price, duration_minutes, active, created_at`

func scanService(row pgx.Row) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Name, &s.Price, &s.DurationMinutes, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

const slotColumns = `id, slot_date, start_time, end_time, location, active, created_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end pgtype.Time

	err := row.Scan(&s.ID, &s.Date, &start, &end, &s.Location, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Start = fromPgTime(start)
	s.End = fromPgTime(end)
	return &s, nil
}

const reservationColumns = `r.id, r.user_id, r.service_id, r.reservation_date, r.start_time, r.end_time,
	r.status, r.notes, r.reminded_at, r.created_at, r.updated_at`

func reservationDest(res *Reservation, start, end *pgtype.Time) []any {
	return []any{
		&res.ID,
		&res.UserID,
		&res.ServiceID,
		&res.Date,
		start,
		end,
		&res.Status,
		&res.Notes,
		&res.RemindedAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	}
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var res Reservation
	var start, end pgtype.Time

	if err := row.Scan(reservationDest(&res, &start, &end)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	res.Start = fromPgTime(start)
	res.End = fromPgTime(end)
	return &res, nil
}

const detailSelect = `
	SELECT ` + reservationColumns + `,
	       s.name, s.price, s.duration_minutes,
	       u.email, u.phone,
	       sl.location
	FROM reservations r
	JOIN services s ON s.id = r.service_id
	JOIN users u ON u.id = r.user_id
	LEFT JOIN slots sl ON sl.slot_date = r.reservation_date
	                  AND sl.start_time = r.start_time
	                  AND sl.end_time = r.end_time`

func scanDetail(row pgx.Row) (*ReservationDetail, error) {
	var d ReservationDetail
	var start, end pgtype.Time

	dest := reservationDest(&d.Reservation, &start, &end)
	dest = append(dest,
		&d.ServiceName,
		&d.ServicePrice,
		&d.ServiceDuration,
		&d.UserEmail,
		&d.UserPhone,
		&d.Location,
	)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	d.Start = fromPgTime(start)
	d.End = fromPgTime(end)
	return &d, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Services

func (r *PgRepository) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	row := r.conn(ctx).QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id)
	return scanService(row)
}

func (r *PgRepository) ListServices(ctx context.Context, activeOnly bool) ([]Service, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE ($1 = FALSE OR active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return collect(rows, scanService)
}

func (r *PgRepository) CreateService(ctx context.Context, svc Service) (*Service, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO services (id, name, price, duration_minutes, active, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+serviceColumns,
		svc.ID, svc.Name, svc.Price, svc.DurationMinutes, svc.Active)
	return scanService(row)
}

func (r *PgRepository) UpdateService(ctx context.Context, svc Service) (*Service, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE services
		SET name = $2,
		    price = $3,
		    duration_minutes = $4,
		    active = $5
		WHERE id = $1
		RETURNING `+serviceColumns,
		svc.ID, svc.Name, svc.Price, svc.DurationMinutes, svc.Active)
	return scanService(row)
}

// Slots

func (r *PgRepository) ListActiveSlotsByDate(ctx context.Context, date time.Time) ([]Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE slot_date = $1 AND active
		ORDER BY start_time
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list slots by date: %w", err)
	}
	return collect(rows, scanSlot)
}

func (r *PgRepository) ListSlots(ctx context.Context, from, to *time.Time) ([]Slot, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE ($1::date IS NULL OR slot_date >= $1)
		  AND ($2::date IS NULL OR slot_date <= $2)
		ORDER BY slot_date, start_time
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return collect(rows, scanSlot)
}

func (r *PgRepository) CreateSlot(ctx context.Context, slot Slot) (*Slot, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO slots (id, slot_date, start_time, end_time, location, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+slotColumns,
		slot.ID, slot.Date, pgTime(slot.Start), pgTime(slot.End), slot.Location, slot.Active)

	created, err := scanSlot(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSlotExists
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return created, nil
}

func (r *PgRepository) SetSlotActive(ctx context.Context, id uuid.UUID, active bool) (*Slot, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE slots SET active = $2 WHERE id = $1
		RETURNING `+slotColumns, id, active)
	return scanSlot(row)
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) CountSlotsBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM slots WHERE slot_date BETWEEN $1 AND $2
	`, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count slots: %w", err)
	}
	return count, nil
}

// Reservations

func (r *PgRepository) ListBlockingReservationsByDate(ctx context.Context, date time.Time) ([]Reservation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.reservation_date = $1
		  AND r.status IN ('confirmed', 'completed')
		ORDER BY r.start_time
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations by date: %w", err)
	}
	return collect(rows, scanReservation)
}

// LockUserReservations takes a transaction-scoped advisory lock on the user,
// so concurrent bookings by one user run their supersede step one at a time.
func (r *PgRepository) LockUserReservations(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, userID.String()); err != nil {
		return fmt.Errorf("lock user reservations: %w", err)
	}
	return nil
}

func (r *PgRepository) CancelFutureReservations(ctx context.Context, userID uuid.UUID, today time.Time, now TimeOfDay) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reservations
		SET status = 'cancelled',
		    updated_at = now()
		WHERE user_id = $1
		  AND status = 'confirmed'
		  AND (reservation_date > $2 OR (reservation_date = $2 AND start_time > $3))
	`, userID, today, pgTime(now))
	if err != nil {
		return 0, fmt.Errorf("cancel future reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FindReservationAt locks and returns the row keyed by (date, start),
// preferring a blocking row over cancelled history.
func (r *PgRepository) FindReservationAt(ctx context.Context, date time.Time, start TimeOfDay) (*Reservation, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.reservation_date = $1 AND r.start_time = $2
		ORDER BY (r.status = 'cancelled'), r.created_at DESC
		LIMIT 1
		FOR UPDATE
	`, date, pgTime(start))
	return scanReservation(row)
}

func (r *PgRepository) DeleteCancelledAt(ctx context.Context, date time.Time, start TimeOfDay) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM reservations
		WHERE reservation_date = $1 AND start_time = $2 AND status = 'cancelled'
	`, date, pgTime(start))
	if err != nil {
		return 0, fmt.Errorf("delete cancelled reservations: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) InsertReservation(ctx context.Context, res Reservation) (*Reservation, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reservations AS r (id, user_id, service_id, reservation_date, start_time, end_time, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING `+reservationColumns,
		res.ID, res.UserID, res.ServiceID, res.Date, pgTime(res.Start), pgTime(res.End), res.Status, res.Notes)

	created, err := scanReservation(row)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err):
			return nil, ErrSlotAlreadyReserved
		case db.IsForeignKeyViolation(err):
			return nil, ErrUnknownReference
		}
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	return created, nil
}

func (r *PgRepository) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations r
		WHERE r.id = $1
	`, id)
	return scanReservation(row)
}

// UpdateReservationStatus only moves rows currently in status from.
// ErrReservationNotFound means no row matched both id and from.
func (r *PgRepository) UpdateReservationStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (*Reservation, error) {
	row := r.conn(ctx).QueryRow(ctx, `
		UPDATE reservations AS r
		SET status = $2,
		    updated_at = now()
		WHERE r.id = $1
		  AND r.status = $3
		RETURNING `+reservationColumns, id, to, from)

	updated, err := scanReservation(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrSlotAlreadyReserved
		}
		return nil, err
	}
	return updated, nil
}

func (r *PgRepository) DeleteReservation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (r *PgRepository) GetReservationDetail(ctx context.Context, id uuid.UUID) (*ReservationDetail, error) {
	row := r.conn(ctx).QueryRow(ctx, detailSelect+` WHERE r.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListReservationsByUser(ctx context.Context, userID uuid.UUID) ([]ReservationDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, detailSelect+`
		WHERE r.user_id = $1
		ORDER BY r.reservation_date DESC, r.start_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by user: %w", err)
	}
	return collect(rows, scanDetail)
}

func (r *PgRepository) ListReservations(ctx context.Context, date *time.Time) ([]ReservationDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, detailSelect+`
		WHERE ($1::date IS NULL OR r.reservation_date = $1)
		ORDER BY r.reservation_date DESC, r.start_time DESC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return collect(rows, scanDetail)
}

func (r *PgRepository) ListDueReminders(ctx context.Context, date time.Time) ([]ReservationDetail, error) {
	rows, err := r.conn(ctx).Query(ctx, detailSelect+`
		WHERE r.reservation_date = $1
		  AND r.status = 'confirmed'
		  AND r.reminded_at IS NULL
		ORDER BY r.start_time
	`, date)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return collect(rows, scanDetail)
}

func (r *PgRepository) MarkReminded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE reservations SET reminded_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
