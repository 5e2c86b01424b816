package room

import (
	"net/http"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/apperror"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

var (
	ErrNotFound  = apperror.New(apperror.KindNotFound, http.StatusNotFound, "room not found")
	ErrDuplicate = apperror.New(apperror.KindDuplicate, http.StatusConflict, "room id already exists")
	ErrInactive  = apperror.New(apperror.KindValidation, http.StatusBadRequest, "room is not available for booking")
	ErrForbidden = apperror.New(apperror.KindForbidden, http.StatusForbidden, "permission denied")
)

// Room is a bookable space. Rooms are soft-deleted (is_active flipped) rather
// than removed, because historical bookings and schedules reference them.
type Room struct {
	ID              string
	Type            string
	Location        string
	Capacity        int
	Characteristics string
	Repair          bool // under repair: kept in listings but closed for new bookings
	IsActive        bool
	CreatedAt       time.Time
}

// Bookable reports whether new bookings may target this room.
func (r *Room) Bookable() bool {
	return r.IsActive && !r.Repair
}

// Equipment is the fixed inventory attached to a room. One row per room.
type Equipment struct {
	RoomID         string
	Projector      int
	Microphone     int
	Computer       int
	Whiteboard     int
	TypeOfComputer string
}

// Status labels for the real-time snapshot.
const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
	StatusClosed    = "closed"
)

// Slot is one occupied interval in a room's day, from either an approved
// booking or a non-closed class occurrence.
type Slot struct {
	ID    string
	Title string
	Kind  string // "booking" or "class"
	Start timeslot.TimeOfDay
	End   timeslot.TimeOfDay
}

// Snapshot is the answer to "what is this room doing right now".
type Snapshot struct {
	Room            *Room
	Date            time.Time
	Status          string
	CurrentActivity string // title of the slot containing now, when busy
	Slots           []Slot
}
