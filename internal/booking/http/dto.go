package http

import (
	"time"

	"github.com/nisitlab/room-booking-backend/internal/booking"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

type CreateBookingRequest struct {
	RoomID  string `json:"room_id" binding:"required"`
	Purpose string `json:"purpose" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Start   string `json:"start_time" binding:"required"`
	End     string `json:"end_time" binding:"required"`
}

type EditBookingRequest struct {
	Purpose string `json:"purpose" binding:"required"`
	Date    string `json:"date" binding:"required"`
	Start   string `json:"start_time" binding:"required"`
	End     string `json:"end_time" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected pending"`
}

type ListBookingsRequest struct {
	Status   string `form:"status" binding:"required,oneof=pending approved rejected cancelled"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

type BookingResponse struct {
	ID         string    `json:"booking_id"`
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	ApproverID string    `json:"approver_id,omitempty"`
	Purpose    string    `json:"purpose"`
	Date       string    `json:"date"`
	Start      string    `json:"start_time"`
	End        string    `json:"end_time"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		RoomID:     b.RoomID,
		UserID:     b.UserID,
		ApproverID: b.ApproverID,
		Purpose:    b.Purpose,
		Date:       b.Date.Format(timeslot.DateLayout),
		Start:      b.Start.String(),
		End:        b.End.String(),
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// HistoryEntryResponse is either a finished booking or one of the requesting
// teacher's temporarily closed class occurrences.
type HistoryEntryResponse struct {
	Kind        string `json:"kind"`
	BookingID   string `json:"booking_id,omitempty"`
	ScheduleID  string `json:"schedule_id,omitempty"`
	RoomID      string `json:"room_id"`
	Purpose     string `json:"purpose,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	Date        string `json:"date"`
	Start       string `json:"start_time"`
	End         string `json:"end_time"`
	Status      string `json:"status,omitempty"`
}

func NewHistoryEntryResponse(e booking.HistoryEntry) HistoryEntryResponse {
	if e.Kind == booking.HistoryClassCancelled {
		return HistoryEntryResponse{
			Kind:        string(e.Kind),
			ScheduleID:  e.Class.ScheduleID,
			RoomID:      e.Class.RoomID,
			SubjectName: e.Class.SubjectName,
			Date:        e.Class.Date.Format(timeslot.DateLayout),
			Start:       e.Class.Start.String(),
			End:         e.Class.End.String(),
		}
	}
	return HistoryEntryResponse{
		Kind:      string(e.Kind),
		BookingID: e.Booking.ID,
		RoomID:    e.Booking.RoomID,
		Purpose:   e.Booking.Purpose,
		Date:      e.Booking.Date.Format(timeslot.DateLayout),
		Start:     e.Booking.Start.String(),
		End:       e.Booking.End.String(),
		Status:    string(e.Booking.Status),
	}
}

// parseSlot converts the wire date/time strings of a request body.
func parseSlot(date, start, end string) (d time.Time, s, e timeslot.TimeOfDay, err error) {
	if d, err = timeslot.ParseDate(date); err != nil {
		return
	}
	if s, err = timeslot.ParseTimeOfDay(start); err != nil {
		return
	}
	e, err = timeslot.ParseTimeOfDay(end)
	return
}
