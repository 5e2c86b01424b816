package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nisitlab/room-booking-backend/internal/notify"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/room"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

// RoomDirectory is the slice of the room layer the booking service needs.
type RoomDirectory interface {
	GetByID(ctx context.Context, id string) (*room.Room, error)
}

// UserDirectory resolves user ids to records, for notification addressing.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// CreateRequest carries a proposed reservation.
type CreateRequest struct {
	RoomID  string
	Purpose string
	Date    time.Time
	Start   timeslot.TimeOfDay
	End     timeslot.TimeOfDay
}

// EditRequest carries replacement fields for an existing booking.
type EditRequest struct {
	Purpose string
	Date    time.Time
	Start   timeslot.TimeOfDay
	End     timeslot.TimeOfDay
}

// Service implements booking admission and the lifecycle state machine.
type Service interface {
	Create(ctx context.Context, actorID string, actorRole user.Role, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	UpdateStatus(ctx context.Context, actorID string, actorRole user.Role, id string, newStatus Status) (*Booking, error)
	Cancel(ctx context.Context, actorID string, id string) error
	Edit(ctx context.Context, actorID string, actorRole user.Role, id string, req EditRequest) (*Booking, error)
	ListByStatus(ctx context.Context, actorRole user.Role, status Status, page, pageSize int) ([]*Booking, int, error)
	// ListMine returns the actor's upcoming pending and approved bookings.
	ListMine(ctx context.Context, actorID string) ([]*Booking, error)
	// ListHistory returns the actor's past and terminal bookings merged with
	// their own temporarily closed class occurrences, newest first.
	ListHistory(ctx context.Context, actorID string) ([]HistoryEntry, error)
	// PurgeExpired removes dead bookings per the retention policy. Called by
	// the maintenance job, not by request handlers.
	PurgeExpired(ctx context.Context) (int64, error)
}

type service struct {
	repo      Repository
	rooms     RoomDirectory
	users     UserDirectory
	classes   ClassRegistry
	notifier  notify.Notifier
	logger    *zap.Logger
	retention time.Duration
	now       func() time.Time
}

// NewService creates a new booking service. retention bounds how long terminal
// bookings are kept before the purge job removes them.
func NewService(repo Repository, rooms RoomDirectory, users UserDirectory, classes ClassRegistry, notifier notify.Notifier, logger *zap.Logger, retention time.Duration) Service {
	return &service{
		repo:      repo,
		rooms:     rooms,
		users:     users,
		classes:   classes,
		notifier:  notifier,
		logger:    logger,
		retention: retention,
		now:       time.Now,
	}
}

// validateSlot rejects malformed or retroactive slots. A booking for today
// must start after the current wall-clock minute.
func (s *service) validateSlot(date time.Time, start, end timeslot.TimeOfDay) error {
	if !start.Before(end) {
		return ErrInvalidInput.WithMessage("start time must be before end time")
	}
	now := s.now()
	if timeslot.BeforeDate(date, now) {
		return ErrTemporalInvalid
	}
	if timeslot.SameDate(date, now) && !timeslot.FromClock(now).Before(start) {
		return ErrTemporalInvalid.WithMessage("booking start time has already passed")
	}
	return nil
}

func (s *service) Create(ctx context.Context, actorID string, actorRole user.Role, req CreateRequest) (*Booking, error) {
	if !actorRole.CanBook() {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return nil, ErrInvalidInput.WithMessage("purpose is required")
	}
	if err := s.validateSlot(req.Date, req.Start, req.End); err != nil {
		return nil, err
	}

	rm, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !rm.Bookable() {
		return nil, room.ErrInactive
	}

	b := &Booking{
		RoomID:  req.RoomID,
		UserID:  actorID,
		Purpose: strings.TrimSpace(req.Purpose),
		Date:    timeslot.DateOnly(req.Date),
		Start:   req.Start,
		End:     req.End,
		Status:  StatusPending,
	}
	if actorRole.CanApprove() {
		b.Status = StatusApproved
		b.ApproverID = actorID
	}

	if err := s.repo.Admit(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("booking admitted",
		zap.String("booking_id", b.ID),
		zap.String("room_id", b.RoomID),
		zap.String("status", string(b.Status)))
	return b, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, actorID string, actorRole user.Role, id string, newStatus Status) (*Booking, error) {
	if !actorRole.CanApprove() {
		return nil, ErrForbidden
	}
	switch newStatus {
	case StatusApproved, StatusRejected, StatusPending:
	default:
		return nil, ErrInvalidInput.WithMessage("status must be approved, rejected or pending")
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	approver := actorID
	if newStatus == StatusPending {
		approver = ""
	}
	if err := s.repo.UpdateStatus(ctx, id, newStatus, approver); err != nil {
		return nil, err
	}
	b.Status = newStatus
	b.ApproverID = approver

	s.notifyOwner(ctx, b, notify.KindBookingStatusChanged,
		fmt.Sprintf("Booking %s %s", b.ID, newStatus),
		fmt.Sprintf("Your booking %s for room %s on %s (%s-%s) is now %s.",
			b.ID, b.RoomID, b.Date.Format(timeslot.DateLayout), b.Start, b.End, newStatus))
	return b, nil
}

func (s *service) Cancel(ctx context.Context, actorID string, id string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.UserID != actorID {
		return ErrForbidden.WithMessage("only the requester may cancel their booking")
	}
	if timeslot.BeforeDate(b.Date, s.now()) {
		return ErrTemporalInvalid.WithMessage("past bookings cannot be cancelled")
	}
	if b.Status.Terminal() {
		return ErrNotCancellable
	}
	return s.repo.Cancel(ctx, id)
}

func (s *service) Edit(ctx context.Context, actorID string, actorRole user.Role, id string, req EditRequest) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID {
		return nil, ErrForbidden.WithMessage("only the requester may edit their booking")
	}
	if b.Status == StatusCancelled {
		return nil, ErrNotEditable
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return nil, ErrInvalidInput.WithMessage("purpose is required")
	}
	if err := s.validateSlot(req.Date, req.Start, req.End); err != nil {
		return nil, err
	}

	b.Purpose = strings.TrimSpace(req.Purpose)
	b.Date = timeslot.DateOnly(req.Date)
	b.Start = req.Start
	b.End = req.End

	// Changing the slot invalidates a prior approval, unless the editor's
	// role keeps approvals across edits.
	if !(b.Status == StatusApproved && actorRole.KeepsApprovalOnEdit()) {
		b.Status = StatusPending
		b.ApproverID = ""
	}

	if err := s.repo.UpdateChecked(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) ListByStatus(ctx context.Context, actorRole user.Role, status Status, page, pageSize int) ([]*Booking, int, error) {
	if !actorRole.CanApprove() {
		return nil, 0, ErrForbidden
	}
	return s.repo.ListByStatus(ctx, status, page, pageSize)
}

func (s *service) ListMine(ctx context.Context, actorID string) ([]*Booking, error) {
	return s.repo.ListMine(ctx, actorID, timeslot.DateOnly(s.now()))
}

func (s *service) ListHistory(ctx context.Context, actorID string) ([]HistoryEntry, error) {
	bookings, err := s.repo.ListHistory(ctx, actorID, timeslot.DateOnly(s.now()))
	if err != nil {
		return nil, err
	}
	closed, err := s.classes.ListClosedForTeacher(ctx, actorID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(bookings)+len(closed))
	for _, b := range bookings {
		entries = append(entries, HistoryEntry{Kind: HistoryBooking, Booking: b})
	}
	for i := range closed {
		entries = append(entries, HistoryEntry{Kind: HistoryClassCancelled, Class: &closed[i]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di, si := entries[i].slot()
		dj, sj := entries[j].slot()
		if !timeslot.SameDate(di, dj) {
			return timeslot.BeforeDate(dj, di)
		}
		return sj.Before(si)
	})
	return entries, nil
}

func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, timeslot.DateOnly(s.now()), s.retention)
}

// notifyOwner queues an email to the booking's requester. Lookup or delivery
// problems never surface to the caller.
func (s *service) notifyOwner(ctx context.Context, b *Booking, kind notify.Kind, subject, body string) {
	owner, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		s.logger.Warn("cannot resolve booking owner for notification",
			zap.String("booking_id", b.ID),
			zap.String("user_id", b.UserID),
			zap.Error(err))
		return
	}
	s.notifier.Enqueue(notify.Message{
		Kind:      kind,
		Recipient: owner.Email,
		Subject:   subject,
		Body:      body,
	})
}
