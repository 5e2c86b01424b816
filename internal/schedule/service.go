package schedule

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nisitlab/room-booking-backend/internal/booking"
	"github.com/nisitlab/room-booking-backend/internal/notify"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

// BookingLedger is the slice of the booking layer the import reconciler needs:
// find the bookings a new class slot collides with, and cancel them.
type BookingLedger interface {
	ListActiveOverlapping(ctx context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) ([]*booking.Booking, error)
	CancelByIDs(ctx context.Context, ids []string) error
}

// TeacherResolver maps timetable rows to user accounts.
type TeacherResolver interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
	FindByName(ctx context.Context, name, surname string) (*user.User, error)
}

// Service implements the two-phase timetable import and schedule queries.
type Service interface {
	// Preview parses the uploaded workbook, expands rows into weekly
	// occurrences and checks each against schedules and bookings. Nothing is
	// written to the schedules table, but bookings that collide with a valid
	// occurrence are cancelled on the spot and stay cancelled even if the
	// preview is never confirmed.
	Preview(ctx context.Context, actorRole user.Role, upload io.Reader) (*ImportReport, error)
	// Confirm inserts a previously previewed occurrence set in one
	// transaction, assigning each occurrence a fresh random id.
	Confirm(ctx context.Context, actorRole user.Role, occs []Occurrence) ([]Occurrence, error)
	GetByID(ctx context.Context, id string) (*Occurrence, error)
	ListForRoom(ctx context.Context, roomID string, from, to time.Time) ([]*Occurrence, error)
	ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]*Occurrence, error)
	// SetClosed flips the soft "class cancelled for this date" marker. Only
	// the owning teacher or an approval-capable role may flip it.
	SetClosed(ctx context.Context, actorID string, actorRole user.Role, id string, closed bool) (*Occurrence, error)
}

// notifyCooldown suppresses duplicate auto-cancel emails when the same upload
// is previewed repeatedly. Process-local by design: best effort, not a
// correctness guarantee.
const notifyCooldown = 5 * time.Minute

type service struct {
	repo     Repository
	bookings BookingLedger
	users    TeacherResolver
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu           sync.Mutex
	lastNotified map[string]time.Time // booking id -> last email time
}

// NewService creates a new schedule service.
func NewService(repo Repository, bookings BookingLedger, users TeacherResolver, notifier notify.Notifier, logger *zap.Logger) Service {
	return &service{
		repo:         repo,
		bookings:     bookings,
		users:        users,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
		lastNotified: make(map[string]time.Time),
	}
}

func (s *service) Preview(ctx context.Context, actorRole user.Role, upload io.Reader) (*ImportReport, error) {
	if !actorRole.CanImportSchedules() {
		return nil, ErrForbidden
	}

	rows, rowErrs, err := ParseWorkbook(upload)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		RowsRead: len(rows) + len(rowErrs),
		Errors:   rowErrs,
	}

	for _, row := range rows {
		teacherID, err := s.resolveTeacher(ctx, row)
		if err != nil {
			report.Errors = append(report.Errors, ImportError{Row: row.Line, Reason: err.Error()})
			continue
		}

		for week, occ := range row.Expand(teacherID) {
			report.OccurrencesGenerated++
			if reason := s.checkOccurrence(ctx, &occ, report); reason != "" {
				report.Errors = append(report.Errors, ImportError{
					Row:    row.Line,
					Week:   week + 1,
					Date:   occ.Date.Format(timeslot.DateLayout),
					Reason: reason,
				})
				continue
			}
			report.Occurrences = append(report.Occurrences, occ)
		}
	}

	report.Valid = len(report.Occurrences)
	report.Errored = len(report.Errors)
	s.logger.Info("timetable preview",
		zap.Int("rows", report.RowsRead),
		zap.Int("occurrences", report.OccurrencesGenerated),
		zap.Int("valid", report.Valid),
		zap.Int("errored", report.Errored),
		zap.Int("bookings_cancelled", len(report.CancelledBookings)))
	return report, nil
}

func (s *service) resolveTeacher(ctx context.Context, row ImportRow) (string, error) {
	if row.UserID != "" {
		u, err := s.users.GetByID(ctx, row.UserID)
		if err != nil {
			return "", fmt.Errorf("unknown user id %q", row.UserID)
		}
		return u.ID, nil
	}
	if row.Name == "" {
		return "", fmt.Errorf("row needs either user_id or name+surname")
	}
	u, err := s.users.FindByName(ctx, row.Name, row.Surname)
	if err != nil {
		return "", fmt.Errorf("no user named %q %q", row.Name, row.Surname)
	}
	return u.ID, nil
}

// checkOccurrence validates one expanded occurrence. A collision with another
// class is a hard error; a collision with an active booking on a current or
// future date cancels the booking and keeps the occurrence (classes outrank
// reservations). Returns a non-empty reason when the occurrence is rejected.
func (s *service) checkOccurrence(ctx context.Context, occ *Occurrence, report *ImportReport) string {
	existing, err := s.repo.FindOverlapping(ctx, occ.RoomID, occ.Date, occ.Start, occ.End)
	if err != nil {
		return "schedule lookup failed"
	}
	if existing != nil {
		return fmt.Sprintf("collides with class %q (%s-%s)", existing.SubjectName, existing.Start, existing.End)
	}

	victims, err := s.bookings.ListActiveOverlapping(ctx, occ.RoomID, occ.Date, occ.Start, occ.End)
	if err != nil {
		return "booking lookup failed"
	}
	if len(victims) == 0 {
		return ""
	}

	// A past-dated occurrence cannot adopt its slot: the colliding booking
	// already took place, so record the conflict instead of rewriting history.
	if timeslot.BeforeDate(occ.Date, s.now()) {
		return fmt.Sprintf("past date collides with booking %s", victims[0].ID)
	}

	ids := make([]string, len(victims))
	for i, v := range victims {
		ids[i] = v.ID
	}
	if err := s.bookings.CancelByIDs(ctx, ids); err != nil {
		return "cancelling colliding bookings failed"
	}
	report.CancelledBookings = append(report.CancelledBookings, ids...)

	for _, v := range victims {
		s.notifyCancelled(ctx, v, occ)
	}
	return ""
}

func (s *service) notifyCancelled(ctx context.Context, b *booking.Booking, occ *Occurrence) {
	s.mu.Lock()
	last, seen := s.lastNotified[b.ID]
	now := s.now()
	if seen && now.Sub(last) < notifyCooldown {
		s.mu.Unlock()
		return
	}
	s.lastNotified[b.ID] = now
	s.mu.Unlock()

	owner, err := s.users.GetByID(ctx, b.UserID)
	if err != nil {
		s.logger.Warn("cannot resolve owner of auto-cancelled booking",
			zap.String("booking_id", b.ID), zap.Error(err))
		return
	}
	s.notifier.Enqueue(notify.Message{
		Kind:      notify.KindBookingAutoCancelled,
		Recipient: owner.Email,
		Subject:   fmt.Sprintf("Booking %s cancelled", b.ID),
		Body: fmt.Sprintf(
			"Your booking %s for room %s on %s (%s-%s) was cancelled because the room is now scheduled for class %q.",
			b.ID, b.RoomID, b.Date.Format(timeslot.DateLayout), b.Start, b.End, occ.SubjectName),
	})
}

func (s *service) Confirm(ctx context.Context, actorRole user.Role, occs []Occurrence) ([]Occurrence, error) {
	if !actorRole.CanImportSchedules() {
		return nil, ErrForbidden
	}
	if len(occs) == 0 {
		return nil, ErrEmptyConfirm
	}

	for i := range occs {
		occs[i].ID = uuid.New().String()
		occs[i].SubjectName = strings.TrimSpace(occs[i].SubjectName)
		occs[i].Date = timeslot.DateOnly(occs[i].Date)
		occs[i].TemporarilyClosed = false
	}
	if err := s.repo.InsertBatch(ctx, occs); err != nil {
		return nil, err
	}
	s.logger.Info("timetable confirmed", zap.Int("occurrences", len(occs)))
	return occs, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Occurrence, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListForRoom(ctx context.Context, roomID string, from, to time.Time) ([]*Occurrence, error) {
	return s.repo.ListForRoom(ctx, roomID, from, to)
}

func (s *service) ListForTeacher(ctx context.Context, teacherID string, from, to time.Time) ([]*Occurrence, error) {
	return s.repo.ListForTeacher(ctx, teacherID, from, to)
}

func (s *service) SetClosed(ctx context.Context, actorID string, actorRole user.Role, id string, closed bool) (*Occurrence, error) {
	occ, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if occ.TeacherID != actorID && !actorRole.CanApprove() {
		return nil, ErrForbidden.WithMessage("only the class teacher or staff may close a class")
	}
	if err := s.repo.SetClosed(ctx, id, closed); err != nil {
		return nil, err
	}
	occ.TemporarilyClosed = closed
	return occ, nil
}
