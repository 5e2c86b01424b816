package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

// Repository persists class schedule occurrences.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Occurrence, error)
	// FindOverlapping returns the first non-closed occurrence colliding with
	// the slot, or nil when the slot is free.
	FindOverlapping(ctx context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) (*Occurrence, error)
	// InsertBatch writes the whole occurrence set in one transaction; any
	// failure rolls the entire batch back.
	InsertBatch(ctx context.Context, occs []Occurrence) error
	ListForRoom(ctx context.Context, roomID string, from, to time.Time) ([]*Occurrence, error)
	ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]*Occurrence, error)
	// ListClosedForTeacher returns the teacher's temporarily closed
	// occurrences, newest first. Feeds the booking history view.
	ListClosedForTeacher(ctx context.Context, teacherID string) ([]*Occurrence, error)
	SetClosed(ctx context.Context, id string, closed bool) error
}

const occurrenceColumns = "schedule_id, room_id, subject_name, teacher_id, semester_id, date, start_time, end_time, temporarily_closed, created_at"

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new schedule repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func scanOccurrence(row pgx.Row) (*Occurrence, error) {
	var o Occurrence
	if err := row.Scan(
		&o.ID, &o.RoomID, &o.SubjectName, &o.TeacherID, &o.SemesterID,
		&o.Date, &o.Start, &o.End, &o.TemporarilyClosed, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Occurrence, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(occurrenceColumns).
		From("public.schedules").
		Where(squirrel.Eq{"schedule_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get schedule query failed: %w", err)
	}

	o, err := scanOccurrence(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get schedule failed: %w", err)
	}
	return o, nil
}

func (r *pgxRepository) FindOverlapping(ctx context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) (*Occurrence, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(occurrenceColumns).
		From("public.schedules").
		Where(squirrel.Eq{"room_id": roomID, "date": date, "temporarily_closed": false}).
		Where(squirrel.Lt{"start_time": end}).
		Where(squirrel.Gt{"end_time": start}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overlapping schedule query failed: %w", err)
	}

	o, err := scanOccurrence(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("overlapping schedule query failed: %w", err)
	}
	return o, nil
}

func (r *pgxRepository) InsertBatch(ctx context.Context, occs []Occurrence) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schedule batch tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	for _, o := range occs {
		query, args, err := psql.Insert("public.schedules").
			Columns("schedule_id", "room_id", "subject_name", "teacher_id", "semester_id", "date", "start_time", "end_time", "temporarily_closed").
			Values(o.ID, o.RoomID, o.SubjectName, o.TeacherID, o.SemesterID, o.Date, o.Start, o.End, o.TemporarilyClosed).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert schedule query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert schedule %s failed: %w", o.ID, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *pgxRepository) ListForRoom(ctx context.Context, roomID string, from, to time.Time) ([]*Occurrence, error) {
	return r.list(ctx, squirrel.Eq{"room_id": roomID}, from, to)
}

func (r *pgxRepository) ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]*Occurrence, error) {
	return r.list(ctx, squirrel.Eq{"teacher_id": teacherID}, from, to)
}

func (r *pgxRepository) list(ctx context.Context, cond squirrel.Eq, from, to time.Time) ([]*Occurrence, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(occurrenceColumns).
		From("public.schedules").
		Where(cond).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		OrderBy("date ASC", "start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list schedules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules failed: %w", err)
	}
	defer rows.Close()

	var occs []*Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule failed: %w", err)
		}
		occs = append(occs, o)
	}
	return occs, nil
}

func (r *pgxRepository) ListClosedForTeacher(ctx context.Context, teacherID string) ([]*Occurrence, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(occurrenceColumns).
		From("public.schedules").
		Where(squirrel.Eq{"teacher_id": teacherID, "temporarily_closed": true}).
		OrderBy("date DESC", "start_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list closed schedules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list closed schedules failed: %w", err)
	}
	defer rows.Close()

	var occs []*Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule failed: %w", err)
		}
		occs = append(occs, o)
	}
	return occs, nil
}

func (r *pgxRepository) SetClosed(ctx context.Context, id string, closed bool) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.schedules").
		Set("temporarily_closed", closed).
		Where(squirrel.Eq{"schedule_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set closed query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set schedule closed failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
