package http

import (
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/schedule"
)

type OccurrencePayload struct {
	ID          string `json:"schedule_id,omitempty"`
	RoomID      string `json:"room_id" binding:"required"`
	SubjectName string `json:"subject_name" binding:"required"`
	TeacherID   string `json:"teacher_id" binding:"required"`
	SemesterID  string `json:"semester_id"`
	Date        string `json:"date" binding:"required"`
	Start       string `json:"start_time" binding:"required"`
	End         string `json:"end_time" binding:"required"`
	Closed      bool   `json:"temporarily_closed"`
}

func NewOccurrencePayload(o *schedule.Occurrence) OccurrencePayload {
	return OccurrencePayload{
		ID:          o.ID,
		RoomID:      o.RoomID,
		SubjectName: o.SubjectName,
		TeacherID:   o.TeacherID,
		SemesterID:  o.SemesterID,
		Date:        o.Date.Format(timeslot.DateLayout),
		Start:       o.Start.String(),
		End:         o.End.String(),
		Closed:      o.TemporarilyClosed,
	}
}

func (p OccurrencePayload) toModel() (schedule.Occurrence, error) {
	date, err := timeslot.ParseDate(p.Date)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	start, err := timeslot.ParseTimeOfDay(p.Start)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	end, err := timeslot.ParseTimeOfDay(p.End)
	if err != nil {
		return schedule.Occurrence{}, err
	}
	return schedule.Occurrence{
		RoomID:      p.RoomID,
		SubjectName: p.SubjectName,
		TeacherID:   p.TeacherID,
		SemesterID:  p.SemesterID,
		Date:        date,
		Start:       start,
		End:         end,
	}, nil
}

type ConfirmRequest struct {
	Occurrences []OccurrencePayload `json:"occurrences" binding:"required,dive"`
}

type PreviewResponse struct {
	RowsRead             int                    `json:"rows_read"`
	OccurrencesGenerated int                    `json:"occurrences_generated"`
	Valid                int                    `json:"valid"`
	Errored              int                    `json:"errored"`
	Occurrences          []OccurrencePayload    `json:"occurrences"`
	Errors               []schedule.ImportError `json:"errors"`
	CancelledBookings    []string               `json:"cancelled_bookings"`
}

func NewPreviewResponse(r *schedule.ImportReport) PreviewResponse {
	resp := PreviewResponse{
		RowsRead:             r.RowsRead,
		OccurrencesGenerated: r.OccurrencesGenerated,
		Valid:                r.Valid,
		Errored:              r.Errored,
		Occurrences:          make([]OccurrencePayload, len(r.Occurrences)),
		Errors:               r.Errors,
		CancelledBookings:    r.CancelledBookings,
	}
	for i := range r.Occurrences {
		resp.Occurrences[i] = NewOccurrencePayload(&r.Occurrences[i])
	}
	if resp.Errors == nil {
		resp.Errors = []schedule.ImportError{}
	}
	if resp.CancelledBookings == nil {
		resp.CancelledBookings = []string{}
	}
	return resp
}

type ListSchedulesRequest struct {
	RoomID    string `form:"room_id"`
	TeacherID string `form:"teacher_id"`
	From      string `form:"from" binding:"required"`
	To        string `form:"to" binding:"required"`
}

type SetClosedRequest struct {
	Closed *bool `json:"temporarily_closed" binding:"required"`
}
