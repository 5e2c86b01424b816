package schedule

import (
	"net/http"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/apperror"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

var (
	ErrNotFound      = apperror.New(apperror.KindNotFound, http.StatusNotFound, "schedule not found")
	ErrForbidden     = apperror.New(apperror.KindForbidden, http.StatusForbidden, "permission denied")
	ErrInvalidUpload = apperror.New(apperror.KindValidation, http.StatusBadRequest, "timetable file cannot be read")
	ErrEmptyConfirm  = apperror.New(apperror.KindValidation, http.StatusBadRequest, "no occurrences to confirm")
)

// Occurrence is one concrete dated instance of a recurring class slot.
// Occurrences are only ever mutated to flip TemporarilyClosed; a closed
// occurrence stops blocking bookings for that date without losing the record.
type Occurrence struct {
	ID                string
	RoomID            string
	SubjectName       string
	TeacherID         string
	SemesterID        string
	Date              time.Time
	Start             timeslot.TimeOfDay
	End               timeslot.TimeOfDay
	TemporarilyClosed bool
	CreatedAt         time.Time
}

// ImportRow is one parsed line of the uploaded timetable: a base session that
// expands into Repeat weekly occurrences starting at Date.
type ImportRow struct {
	Line        int // 1-based workbook row, for error reporting
	RoomID      string
	SubjectName string
	Name        string
	Surname     string
	SemesterID  string
	UserID      string
	Date        time.Time
	Start       timeslot.TimeOfDay
	End         timeslot.TimeOfDay
	Repeat      int
}

// ImportError pins one rejected row or occurrence to its workbook position.
type ImportError struct {
	Row    int    `json:"row"`
	Week   int    `json:"week,omitempty"`
	Date   string `json:"date,omitempty"`
	Reason string `json:"reason"`
}

// ImportReport is the outcome of a preview: the valid occurrence set waiting
// for confirmation plus everything that was rejected. Bookings listed in
// CancelledBookings were already cancelled when the report is returned; that
// side effect does not wait for the confirm step.
type ImportReport struct {
	RowsRead             int
	OccurrencesGenerated int
	Valid                int
	Errored              int
	Occurrences          []Occurrence
	Errors               []ImportError
	CancelledBookings    []string
}
