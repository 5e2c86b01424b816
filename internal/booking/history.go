package booking

import (
	"context"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

// ClosedClass is a temporarily closed class occurrence owned by the
// requesting teacher. It shows up in booking history next to the user's own
// past and terminal bookings.
type ClosedClass struct {
	ScheduleID  string
	RoomID      string
	SubjectName string
	Date        time.Time
	Start       timeslot.TimeOfDay
	End         timeslot.TimeOfDay
}

// ClassRegistry lists a teacher's temporarily closed occurrences. Users who
// teach nothing simply get an empty list.
type ClassRegistry interface {
	ListClosedForTeacher(ctx context.Context, teacherID string) ([]ClosedClass, error)
}

// HistoryKind tags the origin of a history row.
type HistoryKind string

const (
	HistoryBooking        HistoryKind = "booking"
	HistoryClassCancelled HistoryKind = "class_cancelled"
)

// HistoryEntry is one row of a user's booking history. Exactly one of
// Booking and Class is set, per Kind.
type HistoryEntry struct {
	Kind    HistoryKind
	Booking *Booking
	Class   *ClosedClass
}

func (e HistoryEntry) slot() (time.Time, timeslot.TimeOfDay) {
	if e.Kind == HistoryClassCancelled {
		return e.Class.Date, e.Class.Start
	}
	return e.Booking.Date, e.Booking.Start
}
