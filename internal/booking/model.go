package booking

import (
	"net/http"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/apperror"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

var (
	ErrNotFound        = apperror.New(apperror.KindNotFound, http.StatusNotFound, "booking not found")
	ErrForbidden       = apperror.New(apperror.KindForbidden, http.StatusForbidden, "permission denied")
	ErrInvalidInput    = apperror.New(apperror.KindValidation, http.StatusBadRequest, "invalid booking data")
	ErrTemporalInvalid = apperror.New(apperror.KindTemporalInvalid, http.StatusBadRequest, "booking time is in the past")
	// ErrScheduleConflict and friends carry the colliding slot in their message;
	// errors.Is still matches the sentinel because matching goes by kind and code.
	ErrScheduleConflict = apperror.New(apperror.KindConflictSchedule, http.StatusConflict, "requested time collides with a class")
	ErrApprovedConflict = apperror.New(apperror.KindConflictApproved, http.StatusConflict, "requested time collides with an approved booking")
	ErrPendingConflict  = apperror.New(apperror.KindConflictPending, http.StatusConflict, "requested time collides with a pending booking")
	ErrNotCancellable   = apperror.New(apperror.KindValidation, http.StatusBadRequest, "booking can no longer be cancelled")
	ErrNotEditable      = apperror.New(apperror.KindValidation, http.StatusBadRequest, "cancelled bookings cannot be edited")
)

// Status is a booking's lifecycle state. Only pending moves forward; the
// others are terminal except through an owner edit, which resets to pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Active reports whether the booking still occupies its slot for conflict
// purposes.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal reports whether the booking can no longer be cancelled by its owner.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// Booking is one room reservation request. Times are half-open wall-clock
// intervals on a calendar date.
type Booking struct {
	ID         string
	RoomID     string
	UserID     string
	ApproverID string // empty until decided
	Purpose    string
	Date       time.Time
	Start      timeslot.TimeOfDay
	End        timeslot.TimeOfDay
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
