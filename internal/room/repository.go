package room

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
)

// Repository defines methods for accessing room data.
type Repository interface {
	// Create inserts the room and its equipment row in one transaction.
	Create(ctx context.Context, r *Room, eq *Equipment) error
	GetByID(ctx context.Context, id string) (*Room, error)
	GetEquipment(ctx context.Context, roomID string) (*Equipment, error)
	List(ctx context.Context, activeOnly bool) ([]*Room, error)
	ListUnderRepair(ctx context.Context) ([]*Room, error)
	// Update rewrites the room row, upserts equipment, and when closing the
	// room cancels its future pending/approved bookings, all transactionally.
	Update(ctx context.Context, r *Room, eq *Equipment, cancelFutureBookings bool) error
	// SoftDelete flips is_active and cancels future pending/approved bookings
	// in one transaction. The row itself is retained for history.
	SoftDelete(ctx context.Context, id string, from time.Time) error
	// ListDayOccupancy returns the room's approved bookings and non-closed
	// class occurrences for one date, unsorted.
	ListDayOccupancy(ctx context.Context, roomID string, date time.Time) ([]Slot, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

// NewPgxRepository creates a new room repository.
func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, rm *Room, eq *Equipment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create room tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.rooms").
		Columns("room_id", "room_type", "location", "capacity", "room_characteristics", "repair", "is_active").
		Values(rm.ID, rm.Type, rm.Location, rm.Capacity, rm.Characteristics, rm.Repair, true).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create room query failed: %w", err)
	}

	if err := tx.QueryRow(ctx, query, args...).Scan(&rm.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create room failed: %w", err)
	}
	rm.IsActive = true

	if eq != nil {
		eq.RoomID = rm.ID
		query, args, err = psql.Insert("public.equipment").
			Columns("room_id", "projector", "microphone", "computer", "whiteboard", "type_of_computer").
			Values(eq.RoomID, eq.Projector, eq.Microphone, eq.Computer, eq.Whiteboard, eq.TypeOfComputer).
			ToSql()
		if err != nil {
			return fmt.Errorf("build create equipment query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("create equipment failed: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"room_id", "room_type", "location", "capacity", "room_characteristics",
		"repair", "is_active", "created_at",
	).
		From("public.rooms").
		Where(squirrel.Eq{"room_id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get room query failed: %w", err)
	}

	var rm Room
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&rm.ID, &rm.Type, &rm.Location, &rm.Capacity, &rm.Characteristics,
		&rm.Repair, &rm.IsActive, &rm.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get room failed: %w", err)
	}
	return &rm, nil
}

func (r *pgxRepository) GetEquipment(ctx context.Context, roomID string) (*Equipment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"room_id", "projector", "microphone", "computer", "whiteboard", "type_of_computer",
	).
		From("public.equipment").
		Where(squirrel.Eq{"room_id": roomID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get equipment query failed: %w", err)
	}

	var eq Equipment
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&eq.RoomID, &eq.Projector, &eq.Microphone, &eq.Computer, &eq.Whiteboard, &eq.TypeOfComputer,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Older rooms may have no equipment row.
			return nil, nil
		}
		return nil, fmt.Errorf("get equipment failed: %w", err)
	}
	return &eq, nil
}

func (r *pgxRepository) List(ctx context.Context, activeOnly bool) ([]*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	queryBuilder := psql.Select(
		"room_id", "room_type", "location", "capacity", "room_characteristics",
		"repair", "is_active", "created_at",
	).
		From("public.rooms").
		OrderBy("room_id ASC")

	if activeOnly {
		queryBuilder = queryBuilder.Where(squirrel.Eq{"is_active": true})
	}

	return r.queryRooms(ctx, queryBuilder)
}

func (r *pgxRepository) ListUnderRepair(ctx context.Context) ([]*Room, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	queryBuilder := psql.Select(
		"room_id", "room_type", "location", "capacity", "room_characteristics",
		"repair", "is_active", "created_at",
	).
		From("public.rooms").
		Where(squirrel.Eq{"repair": true}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("room_id ASC")

	return r.queryRooms(ctx, queryBuilder)
}

func (r *pgxRepository) queryRooms(ctx context.Context, qb squirrel.SelectBuilder) ([]*Room, error) {
	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list rooms query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms failed: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		var rm Room
		if err := rows.Scan(
			&rm.ID, &rm.Type, &rm.Location, &rm.Capacity, &rm.Characteristics,
			&rm.Repair, &rm.IsActive, &rm.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan room failed: %w", err)
		}
		rooms = append(rooms, &rm)
	}
	return rooms, nil
}

func (r *pgxRepository) Update(ctx context.Context, rm *Room, eq *Equipment, cancelFutureBookings bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update room tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	if cancelFutureBookings {
		if err := cancelActiveBookings(ctx, tx, rm.ID, time.Now()); err != nil {
			return err
		}
	}

	query, args, err := psql.Update("public.rooms").
		Set("room_type", rm.Type).
		Set("location", rm.Location).
		Set("capacity", rm.Capacity).
		Set("room_characteristics", rm.Characteristics).
		Set("repair", rm.Repair).
		Where(squirrel.Eq{"room_id": rm.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update room query failed: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update room failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	if eq != nil {
		eq.RoomID = rm.ID
		query, args, err = psql.Update("public.equipment").
			Set("projector", eq.Projector).
			Set("microphone", eq.Microphone).
			Set("computer", eq.Computer).
			Set("whiteboard", eq.Whiteboard).
			Set("type_of_computer", eq.TypeOfComputer).
			Where(squirrel.Eq{"room_id": rm.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update equipment query failed: %w", err)
		}

		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update equipment failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// Room predates equipment tracking; insert instead.
			query, args, err = psql.Insert("public.equipment").
				Columns("room_id", "projector", "microphone", "computer", "whiteboard", "type_of_computer").
				Values(eq.RoomID, eq.Projector, eq.Microphone, eq.Computer, eq.Whiteboard, eq.TypeOfComputer).
				ToSql()
			if err != nil {
				return fmt.Errorf("build insert equipment query failed: %w", err)
			}
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("insert equipment failed: %w", err)
			}
		}
	}

	return tx.Commit(ctx)
}

func (r *pgxRepository) SoftDelete(ctx context.Context, id string, from time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete room tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := cancelActiveBookings(ctx, tx, id, from); err != nil {
		return err
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.rooms").
		Set("is_active", false).
		Where(squirrel.Eq{"room_id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete (soft) room query failed: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete (soft) room failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// cancelActiveBookings cancels pending/approved bookings of the room from the
// given date onward. Runs inside the caller's transaction so the room change
// and the cascade land together or not at all.
func cancelActiveBookings(ctx context.Context, tx pgx.Tx, roomID string, from time.Time) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", "cancelled").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.Eq{"status": []string{"pending", "approved"}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cancel bookings query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("cancel bookings failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) ListDayOccupancy(ctx context.Context, roomID string, date time.Time) ([]Slot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

	bookingSQL, bookingArgs, err := psql.Select(
		"booking_id", "purpose", "start_time", "end_time",
	).
		From("public.bookings").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"date": date}).
		Where(squirrel.Eq{"status": "approved"}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build day bookings query failed: %w", err)
	}

	var slots []Slot

	rows, err := r.pool.Query(ctx, bookingSQL, bookingArgs...)
	if err != nil {
		return nil, fmt.Errorf("day bookings query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s := Slot{Kind: "booking"}
		if err := rows.Scan(&s.ID, &s.Title, &s.Start, &s.End); err != nil {
			return nil, fmt.Errorf("scan day booking failed: %w", err)
		}
		slots = append(slots, s)
	}
	rows.Close()

	classSQL, classArgs, err := psql.Select(
		"schedule_id", "subject_name", "start_time", "end_time",
	).
		From("public.schedules").
		Where(squirrel.Eq{"room_id": roomID}).
		Where(squirrel.Eq{"date": date}).
		Where(squirrel.Eq{"temporarily_closed": false}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build day classes query failed: %w", err)
	}

	rows, err = r.pool.Query(ctx, classSQL, classArgs...)
	if err != nil {
		return nil, fmt.Errorf("day classes query failed: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		s := Slot{Kind: "class"}
		if err := rows.Scan(&s.ID, &s.Title, &s.Start, &s.End); err != nil {
			return nil, fmt.Errorf("scan day class failed: %w", err)
		}
		slots = append(slots, s)
	}

	return slots, nil
}
