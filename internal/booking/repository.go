package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

// Repository persists bookings. Conflict-sensitive writes (Admit, UpdateChecked)
// run their checks and the write inside one serializable transaction so two
// concurrent requests for the same slot cannot both pass the check.
type Repository interface {
	// Admit runs the schedule and booking conflict checks for b's slot, claims
	// the next sequential booking id and inserts the row, atomically. The
	// returned error carries the colliding slot when a conflict is found.
	Admit(ctx context.Context, b *Booking) error
	// UpdateChecked re-runs the conflict checks excluding b itself, then
	// rewrites purpose, slot and status, atomically.
	UpdateChecked(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, id string, status Status, approverID string) error
	// Cancel flips an active booking to cancelled. Returns ErrNotCancellable
	// when the booking is already terminal.
	Cancel(ctx context.Context, id string) error
	ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]*Booking, int, error)
	// ListMine returns the user's still-active bookings dated today or later.
	ListMine(ctx context.Context, userID string, today time.Time) ([]*Booking, error)
	// ListHistory returns the user's bookings that are either already past or
	// in a terminal state. Future pending and approved rows belong to ListMine.
	ListHistory(ctx context.Context, userID string, today time.Time) ([]*Booking, error)
	// ListActiveOverlapping returns pending/approved bookings colliding with
	// the given slot. Used by the timetable import to find victims.
	ListActiveOverlapping(ctx context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) ([]*Booking, error)
	CancelByIDs(ctx context.Context, ids []string) error
	// PurgeExpired deletes pending bookings whose date has passed and terminal
	// bookings older than the retention window.
	PurgeExpired(ctx context.Context, today time.Time, retention time.Duration) (int64, error)
}

const bookingColumns = "booking_id, room_id, user_id, COALESCE(approver_id, ''), purpose, date, start_time, end_time, status, created_at, updated_at"

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new booking repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// serializableRetries bounds how often a conflicting serializable transaction
// is retried before giving up.
const serializableRetries = 3

func (r *pgxRepository) inSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 0; attempt < serializableRetries; attempt++ {
		err = r.runOnce(ctx, fn)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure {
			continue
		}
		return err
	}
	return fmt.Errorf("serializable tx gave up after %d attempts: %w", serializableRetries, err)
}

func (r *pgxRepository) runOnce(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin booking tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *pgxRepository) Admit(ctx context.Context, b *Booking) error {
	return r.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := checkScheduleConflict(ctx, tx, b.RoomID, b.Date, b.Start, b.End); err != nil {
			return err
		}
		if err := checkBookingConflict(ctx, tx, b.RoomID, b.Date, b.Start, b.End, ""); err != nil {
			return err
		}

		id, err := nextBookingID(ctx, tx)
		if err != nil {
			return err
		}
		b.ID = id

		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		query, args, err := psql.Insert("public.bookings").
			Columns("booking_id", "room_id", "user_id", "approver_id", "purpose", "date", "start_time", "end_time", "status").
			Values(b.ID, b.RoomID, b.UserID, nullable(b.ApproverID), b.Purpose, b.Date, b.Start, b.End, string(b.Status)).
			Suffix("RETURNING created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert booking query failed: %w", err)
		}
		if err := tx.QueryRow(ctx, query, args...).Scan(&b.CreatedAt, &b.UpdatedAt); err != nil {
			return fmt.Errorf("insert booking failed: %w", err)
		}
		return nil
	})
}

func (r *pgxRepository) UpdateChecked(ctx context.Context, b *Booking) error {
	return r.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := checkScheduleConflict(ctx, tx, b.RoomID, b.Date, b.Start, b.End); err != nil {
			return err
		}
		if err := checkBookingConflict(ctx, tx, b.RoomID, b.Date, b.Start, b.End, b.ID); err != nil {
			return err
		}

		psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
		query, args, err := psql.Update("public.bookings").
			Set("purpose", b.Purpose).
			Set("date", b.Date).
			Set("start_time", b.Start).
			Set("end_time", b.End).
			Set("status", string(b.Status)).
			Set("approver_id", nullable(b.ApproverID)).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"booking_id": b.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update booking query failed: %w", err)
		}

		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update booking failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// checkScheduleConflict looks for a non-closed class occurrence overlapping the
// slot. Intervals are half-open, touching endpoints do not collide.
func checkScheduleConflict(ctx context.Context, tx pgx.Tx, roomID string, date time.Time, start, end timeslot.TimeOfDay) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("subject_name", "start_time", "end_time").
		From("public.schedules").
		Where(squirrel.Eq{"room_id": roomID, "date": date, "temporarily_closed": false}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start}).
		Limit(1).
		ToSql()
	if err != nil {
		return fmt.Errorf("build schedule conflict query failed: %w", err)
	}

	var subject string
	var s, e timeslot.TimeOfDay
	err = tx.QueryRow(ctx, query, args...).Scan(&subject, &s, &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule conflict query failed: %w", err)
	}
	return ErrScheduleConflict.WithMessage(
		fmt.Sprintf("requested time collides with class %q (%s-%s)", subject, s, e))
}

// checkBookingConflict looks for an active booking overlapping the slot.
// An approved collision always wins; a pending one blocks too but with an
// advisory kind, since it resolves once the pending request is decided.
func checkBookingConflict(ctx context.Context, tx pgx.Tx, roomID string, date time.Time, start, end timeslot.TimeOfDay, excludeID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	qb := psql.Select("booking_id", "status", "start_time", "end_time").
		From("public.bookings").
		Where(squirrel.Eq{"room_id": roomID, "date": date}).
		Where(squirrel.Eq{"status": []string{string(StatusApproved), string(StatusPending)}}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start}).
		OrderBy("status ASC"). // approved sorts before pending
		Limit(1)
	if excludeID != "" {
		qb = qb.Where(squirrel.NotEq{"booking_id": excludeID})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("build booking conflict query failed: %w", err)
	}

	var id, status string
	var s, e timeslot.TimeOfDay
	err = tx.QueryRow(ctx, query, args...).Scan(&id, &status, &s, &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("booking conflict query failed: %w", err)
	}
	if Status(status) == StatusApproved {
		return ErrApprovedConflict.WithMessage(
			fmt.Sprintf("requested time collides with approved booking %s (%s-%s)", id, s, e))
	}
	return ErrPendingConflict.WithMessage(
		fmt.Sprintf("requested time collides with pending booking %s (%s-%s)", id, s, e))
}

// nextBookingID claims the next value from the booking counter row. The UPDATE
// takes a row lock, so concurrent admissions serialize here instead of racing
// a read-max-then-insert sequence.
func nextBookingID(ctx context.Context, tx pgx.Tx) (string, error) {
	var n int64
	err := tx.QueryRow(ctx,
		`UPDATE public.id_counters SET last_value = last_value + 1 WHERE name = 'booking' RETURNING last_value`,
	).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("claim booking id failed: %w", err)
	}
	return fmt.Sprintf("b%04d", n), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"booking_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status string
	if err := row.Scan(
		&b.ID, &b.RoomID, &b.UserID, &b.ApproverID, &b.Purpose,
		&b.Date, &b.Start, &b.End, &status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, status Status, approverID string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(status)).
		Set("approver_id", nullable(approverID)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"booking_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking status failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Cancel(ctx context.Context, id string) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCancelled)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"booking_id": id}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusApproved)}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cancel booking query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("cancel booking failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotCancellable
	}
	return nil
}

func (r *pgxRepository) ListByStatus(ctx context.Context, status Status, page, pageSize int) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns, "count(*) OVER() AS total").
		From("public.bookings").
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("date ASC", "start_time ASC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(
			&b.ID, &b.RoomID, &b.UserID, &b.ApproverID, &b.Purpose,
			&b.Date, &b.Start, &b.End, &status, &b.CreatedAt, &b.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		b.Status = Status(status)
		bookings = append(bookings, &b)
	}
	return bookings, total, nil
}

func (r *pgxRepository) ListMine(ctx context.Context, userID string, today time.Time) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	qb := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusApproved)}}).
		Where(squirrel.GtOrEq{"date": today}).
		OrderBy("date ASC", "start_time ASC")
	return r.queryMany(ctx, qb, "list my bookings")
}

func (r *pgxRepository) ListHistory(ctx context.Context, userID string, today time.Time) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	qb := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Or{
			squirrel.Lt{"date": today},
			squirrel.Eq{"status": []string{string(StatusRejected), string(StatusCancelled)}},
		}).
		OrderBy("date DESC", "start_time DESC")
	return r.queryMany(ctx, qb, "list booking history")
}

func (r *pgxRepository) queryMany(ctx context.Context, qb squirrel.SelectBuilder, op string) ([]*Booking, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query failed: %w", op, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *pgxRepository) ListActiveOverlapping(ctx context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) ([]*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns).
		From("public.bookings").
		Where(squirrel.Eq{"room_id": roomID, "date": date}).
		Where(squirrel.Eq{"status": []string{string(StatusApproved), string(StatusPending)}}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlapping bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("overlapping bookings query failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (r *pgxRepository) CancelByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCancelled)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"booking_id": ids}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusApproved)}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cancel bookings query failed: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("cancel bookings failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) PurgeExpired(ctx context.Context, today time.Time, retention time.Duration) (int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	// Pending requests nobody decided before the date passed are dead weight.
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"status": string(StatusPending)}).
		Where(squirrel.Lt{"date": today}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge pending query failed: %w", err)
	}
	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge pending bookings failed: %w", err)
	}
	purged := ct.RowsAffected()

	cutoff := today.Add(-retention)
	query, args, err = psql.Delete("public.bookings").
		Where(squirrel.Eq{"status": []string{string(StatusApproved), string(StatusRejected), string(StatusCancelled)}}).
		Where(squirrel.Lt{"date": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge terminal query failed: %w", err)
	}
	ct, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return purged, fmt.Errorf("purge terminal bookings failed: %w", err)
	}
	return purged + ct.RowsAffected(), nil
}
