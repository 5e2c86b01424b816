package schedule

import (
	"context"

	"github.com/nisitlab/room-booking-backend/internal/booking"
)

// HistorySource surfaces a teacher's temporarily closed occurrences to the
// booking history view.
type HistorySource struct {
	repo Repository
}

func NewHistorySource(repo Repository) HistorySource {
	return HistorySource{repo: repo}
}

func (h HistorySource) ListClosedForTeacher(ctx context.Context, teacherID string) ([]booking.ClosedClass, error) {
	occs, err := h.repo.ListClosedForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	classes := make([]booking.ClosedClass, 0, len(occs))
	for _, o := range occs {
		classes = append(classes, booking.ClosedClass{
			ScheduleID:  o.ID,
			RoomID:      o.RoomID,
			SubjectName: o.SubjectName,
			Date:        o.Date,
			Start:       o.Start,
			End:         o.End,
		})
	}
	return classes, nil
}
