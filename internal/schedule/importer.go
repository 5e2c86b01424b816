package schedule

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
)

// DefaultRepeat is how many weekly occurrences a row expands into when the
// repeat column is empty: one semester of classes.
const DefaultRepeat = 15

var requiredColumns = []string{"room_id", "subject_name", "date", "start_time", "end_time"}

// ParseWorkbook reads the first sheet of an uploaded timetable. The header row
// names the columns; order does not matter. Rows that cannot be parsed become
// ImportError entries instead of aborting the whole upload.
func ParseWorkbook(r io.Reader) ([]ImportRow, []ImportError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, ErrInvalidUpload
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrInvalidUpload
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, ErrInvalidUpload
	}
	if len(rows) < 2 {
		return nil, nil, ErrInvalidUpload.WithMessage("timetable has no data rows")
	}

	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, nil, ErrInvalidUpload.WithMessage(fmt.Sprintf("missing column %q", name))
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []ImportRow
	var errs []ImportError
	for i, row := range rows[1:] {
		line := i + 2
		fail := func(reason string) {
			errs = append(errs, ImportError{Row: line, Reason: reason})
		}

		ir := ImportRow{
			Line:        line,
			RoomID:      cell(row, "room_id"),
			SubjectName: cell(row, "subject_name"),
			Name:        cell(row, "name"),
			Surname:     cell(row, "surname"),
			SemesterID:  cell(row, "semester_id"),
			UserID:      cell(row, "user_id"),
			Repeat:      DefaultRepeat,
		}
		if ir.RoomID == "" || ir.SubjectName == "" {
			fail("room_id and subject_name are required")
			continue
		}

		if ir.Date, err = timeslot.ParseDate(cell(row, "date")); err != nil {
			fail(err.Error())
			continue
		}
		if ir.Start, err = timeslot.ParseTimeOfDay(cell(row, "start_time")); err != nil {
			fail(err.Error())
			continue
		}
		if ir.End, err = timeslot.ParseTimeOfDay(cell(row, "end_time")); err != nil {
			fail(err.Error())
			continue
		}
		if !ir.Start.Before(ir.End) {
			fail("start_time must be before end_time")
			continue
		}

		if raw := cell(row, "repeat"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				fail(fmt.Sprintf("invalid repeat count %q", raw))
				continue
			}
			ir.Repeat = n
		}

		parsed = append(parsed, ir)
	}
	return parsed, errs, nil
}

// Expand generates the dated occurrences of a row: the base date plus weekly
// steps. Week arithmetic is plain day addition, so month and year boundaries
// fall out naturally.
func (r ImportRow) Expand(teacherID string) []Occurrence {
	occs := make([]Occurrence, r.Repeat)
	for week := 0; week < r.Repeat; week++ {
		occs[week] = Occurrence{
			RoomID:      r.RoomID,
			SubjectName: r.SubjectName,
			TeacherID:   teacherID,
			SemesterID:  r.SemesterID,
			Date:        r.Date.AddDate(0, 0, 7*week),
			Start:       r.Start,
			End:         r.End,
		}
	}
	return occs
}
