package room

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

// CreateRequest carries the fields needed to register a room.
type CreateRequest struct {
	ID              string
	Type            string
	Location        string
	Capacity        int
	Characteristics string
	Equipment       *Equipment
}

// UpdateRequest carries the mutable fields of a room.
type UpdateRequest struct {
	Type            string
	Location        string
	Capacity        int
	Characteristics string
	Repair          bool
	Equipment       *Equipment
}

// Service provides room management and the real-time status view.
type Service interface {
	Create(ctx context.Context, actorRole user.Role, req CreateRequest) (*Room, error)
	GetByID(ctx context.Context, id string) (*Room, *Equipment, error)
	List(ctx context.Context) ([]*Room, error)
	ListUnderRepair(ctx context.Context) ([]*Room, error)
	Update(ctx context.Context, actorRole user.Role, id string, req UpdateRequest) (*Room, error)
	Delete(ctx context.Context, actorRole user.Role, id string) error
	// StatusNow reports whether the room is closed, busy or available at the
	// current moment, together with the rest of today's occupancy.
	StatusNow(ctx context.Context, id string) (*Snapshot, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new room service.
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Create(ctx context.Context, actorRole user.Role, req CreateRequest) (*Room, error) {
	if !actorRole.CanManageRooms() {
		return nil, ErrForbidden
	}

	rm := &Room{
		ID:              strings.TrimSpace(req.ID),
		Type:            strings.TrimSpace(req.Type),
		Location:        strings.TrimSpace(req.Location),
		Capacity:        req.Capacity,
		Characteristics: strings.TrimSpace(req.Characteristics),
	}
	if err := s.repo.Create(ctx, rm, req.Equipment); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, *Equipment, error) {
	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	eq, err := s.repo.GetEquipment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return rm, eq, nil
}

func (s *service) List(ctx context.Context) ([]*Room, error) {
	return s.repo.List(ctx, true)
}

func (s *service) ListUnderRepair(ctx context.Context) ([]*Room, error) {
	return s.repo.ListUnderRepair(ctx)
}

func (s *service) Update(ctx context.Context, actorRole user.Role, id string, req UpdateRequest) (*Room, error) {
	if !actorRole.CanManageRooms() {
		return nil, ErrForbidden
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rm := &Room{
		ID:              id,
		Type:            strings.TrimSpace(req.Type),
		Location:        strings.TrimSpace(req.Location),
		Capacity:        req.Capacity,
		Characteristics: strings.TrimSpace(req.Characteristics),
		Repair:          req.Repair,
		IsActive:        current.IsActive,
		CreatedAt:       current.CreatedAt,
	}

	// Taking a room out of service voids what was already booked there.
	cancelBookings := req.Repair && !current.Repair
	if err := s.repo.Update(ctx, rm, req.Equipment, cancelBookings); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) Delete(ctx context.Context, actorRole user.Role, id string) error {
	if !actorRole.CanManageRooms() {
		return ErrForbidden
	}
	return s.repo.SoftDelete(ctx, id, timeslot.DateOnly(s.now()))
}

func (s *service) StatusNow(ctx context.Context, id string) (*Snapshot, error) {
	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snap := &Snapshot{Room: rm, Date: timeslot.DateOnly(now)}

	if !rm.Bookable() {
		snap.Status = StatusClosed
		return snap, nil
	}

	slots, err := s.repo.ListDayOccupancy(ctx, id, snap.Date)
	if err != nil {
		return nil, err
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	snap.Slots = slots

	// "Busy" is deliberately endpoint-inclusive: a room whose booking ends at
	// 10:00 still reads busy at 10:00 sharp, unlike booking conflict checks
	// which treat the end as open so back-to-back reservations are allowed.
	t := timeslot.FromClock(now)
	snap.Status = StatusAvailable
	for _, slot := range slots {
		if timeslot.Contains(t, slot.Start, slot.End) {
			snap.Status = StatusBusy
			snap.CurrentActivity = slot.Title
			break
		}
	}
	return snap, nil
}
