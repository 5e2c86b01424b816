package schedule

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nisitlab/room-booking-backend/internal/booking"
	"github.com/nisitlab/room-booking-backend/internal/notify"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

type mockRepo struct {
	occurrences map[string]*Occurrence
	batchErr    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{occurrences: make(map[string]*Occurrence)}
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Occurrence, error) {
	o, ok := m.occurrences[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockRepo) FindOverlapping(_ context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) (*Occurrence, error) {
	for _, o := range m.occurrences {
		if o.RoomID == roomID && timeslot.SameDate(o.Date, date) && !o.TemporarilyClosed &&
			timeslot.Overlaps(start, end, o.Start, o.End) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) InsertBatch(_ context.Context, occs []Occurrence) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	for i := range occs {
		cp := occs[i]
		m.occurrences[cp.ID] = &cp
	}
	return nil
}

func (m *mockRepo) ListForRoom(_ context.Context, roomID string, _, _ time.Time) ([]*Occurrence, error) {
	var out []*Occurrence
	for _, o := range m.occurrences {
		if o.RoomID == roomID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) ListForTeacher(_ context.Context, teacherID string, _, _ time.Time) ([]*Occurrence, error) {
	var out []*Occurrence
	for _, o := range m.occurrences {
		if o.TeacherID == teacherID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) ListClosedForTeacher(_ context.Context, teacherID string) ([]*Occurrence, error) {
	var out []*Occurrence
	for _, o := range m.occurrences {
		if o.TeacherID == teacherID && o.TemporarilyClosed {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockRepo) SetClosed(_ context.Context, id string, closed bool) error {
	o, ok := m.occurrences[id]
	if !ok {
		return ErrNotFound
	}
	o.TemporarilyClosed = closed
	return nil
}

type mockLedger struct {
	bookings  map[string]*booking.Booking
	cancelled []string
}

func newMockLedger() *mockLedger {
	return &mockLedger{bookings: make(map[string]*booking.Booking)}
}

func (m *mockLedger) ListActiveOverlapping(_ context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) ([]*booking.Booking, error) {
	var out []*booking.Booking
	for _, b := range m.bookings {
		if b.RoomID == roomID && timeslot.SameDate(b.Date, date) && b.Status.Active() &&
			timeslot.Overlaps(start, end, b.Start, b.End) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockLedger) CancelByIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok {
			b.Status = booking.StatusCancelled
		}
	}
	m.cancelled = append(m.cancelled, ids...)
	return nil
}

type mockResolver struct {
	users map[string]*user.User
}

func (m *mockResolver) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockResolver) FindByName(_ context.Context, name, surname string) (*user.User, error) {
	for _, u := range m.users {
		if u.Name == name && u.Surname == surname {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

type mockNotifier struct {
	sent []notify.Message
}

func (m *mockNotifier) Enqueue(msg notify.Message) {
	m.sent = append(m.sent, msg)
}

type fixture struct {
	repo     *mockRepo
	ledger   *mockLedger
	users    *mockResolver
	notifier *mockNotifier
	svc      *service
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:   newMockRepo(),
		ledger: newMockLedger(),
		users: &mockResolver{users: map[string]*user.User{
			"t01": {ID: "t01", Name: "Anan", Surname: "Srisuwan", Email: "anan@dept.example", Role: user.RoleTeacher},
		}},
		notifier: &mockNotifier{},
		clock:    time.Date(2026, 1, 20, 9, 0, 0, 0, time.Local),
	}
	svc := NewService(f.repo, f.ledger, f.users, f.notifier, zap.NewNop()).(*service)
	svc.now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

type sheetRow struct {
	roomID, subject, name, surname, semester, userID, date, start, end, repeat string
}

// workbook builds an in-memory xlsx upload in the expected column layout.
func workbook(t *testing.T, rows ...sheetRow) io.Reader {
	t.Helper()
	f := excelize.NewFile()
	header := []string{"room_id", "subject_name", "name", "surname", "semester_id", "user_id", "date", "start_time", "end_time", "repeat"}
	for i, v := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, f.SetCellValue("Sheet1", cell, v))
	}
	for r, row := range rows {
		values := []string{row.roomID, row.subject, row.name, row.surname, row.semester, row.userID, row.date, row.start, row.end, row.repeat}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func day(s string) time.Time {
	d, err := timeslot.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func at(h int) timeslot.TimeOfDay { return timeslot.TimeOfDay{Hour: h} }

func TestPreviewRequiresImportRole(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Preview(context.Background(), user.RoleTeacher,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "09:00", end: "11:00", repeat: "3"}))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPreviewWeeklyExpansion(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "09:00", end: "11:00", repeat: "3"}))
	require.NoError(t, err)

	assert.Equal(t, 1, report.RowsRead)
	assert.Equal(t, 3, report.OccurrencesGenerated)
	assert.Equal(t, 3, report.Valid)
	assert.Zero(t, report.Errored)
	require.Len(t, report.Occurrences, 3)

	// Weekly steps cross the January/February boundary by plain day addition.
	dates := []string{"2026-01-28", "2026-02-04", "2026-02-11"}
	for i, want := range dates {
		assert.Equal(t, want, report.Occurrences[i].Date.Format(timeslot.DateLayout))
		assert.Equal(t, "t01", report.Occurrences[i].TeacherID)
		assert.Empty(t, report.Occurrences[i].ID, "ids are assigned at confirm, not preview")
	}

	// Preview writes nothing to the schedule store.
	assert.Empty(t, f.repo.occurrences)
}

func TestPreviewDefaultRepeat(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "09:00", end: "11:00"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultRepeat, report.OccurrencesGenerated)
}

func TestPreviewResolvesTeacherByName(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t,
			sheetRow{roomID: "R1", subject: "Calculus", name: "Anan", surname: "Srisuwan", date: "2026-01-28", start: "09:00", end: "10:00", repeat: "1"},
			sheetRow{roomID: "R1", subject: "Physics", name: "Nobody", surname: "Here", date: "2026-01-28", start: "13:00", end: "14:00", repeat: "2"},
		))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, "t01", report.Occurrences[0].TeacherID)
	// The unresolvable teacher kills the whole row before expansion.
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Row)
	assert.Contains(t, report.Errors[0].Reason, "Nobody")
}

func TestPreviewScheduleCollisionIsHardError(t *testing.T) {
	f := newFixture(t)
	f.repo.occurrences["existing"] = &Occurrence{
		ID: "existing", RoomID: "R1", SubjectName: "Chemistry",
		Date: day("2026-02-04"), Start: at(9), End: at(11),
	}

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "10:00", end: "12:00", repeat: "3"}))
	require.NoError(t, err)

	// Week 2 (2026-02-04) collides with Chemistry; weeks 1 and 3 stay valid.
	assert.Equal(t, 2, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Week)
	assert.Equal(t, "2026-02-04", report.Errors[0].Date)
	assert.Contains(t, report.Errors[0].Reason, "Chemistry")
}

func TestPreviewAdoptsSlotFromBooking(t *testing.T) {
	f := newFixture(t)
	f.ledger.bookings["b0007"] = &booking.Booking{
		ID: "b0007", RoomID: "R1", UserID: "t01",
		Date: day("2026-02-04"), Start: at(10), End: at(11), Status: booking.StatusApproved,
	}

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "10:00", end: "12:00", repeat: "3"}))
	require.NoError(t, err)

	// The colliding occurrence is still valid; the booking lost its slot.
	assert.Equal(t, 3, report.Valid)
	assert.Zero(t, report.Errored)
	assert.Equal(t, []string{"b0007"}, report.CancelledBookings)
	assert.Equal(t, booking.StatusCancelled, f.ledger.bookings["b0007"].Status)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindBookingAutoCancelled, f.notifier.sent[0].Kind)
	assert.Equal(t, "anan@dept.example", f.notifier.sent[0].Recipient)
	assert.Contains(t, f.notifier.sent[0].Body, "Calculus")
}

func TestPreviewCooldownSuppressesDuplicateEmails(t *testing.T) {
	f := newFixture(t)
	f.ledger.bookings["b0007"] = &booking.Booking{
		ID: "b0007", RoomID: "R1", UserID: "t01",
		Date: day("2026-02-04"), Start: at(10), End: at(11), Status: booking.StatusApproved,
	}
	upload := func() io.Reader {
		return workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-02-04", start: "10:00", end: "12:00", repeat: "1"})
	}

	_, err := f.svc.Preview(context.Background(), user.RoleStaff, upload())
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 1)

	// Re-previewing minutes later re-cancels the booking but the cooldown
	// swallows the second email.
	f.ledger.bookings["b0007"].Status = booking.StatusApproved // re-arm the collision
	f.clock = f.clock.Add(time.Minute)
	_, err = f.svc.Preview(context.Background(), user.RoleStaff, upload())
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 1, "cooldown suppresses the repeat email")

	// Past the cooldown window the email goes out again.
	f.ledger.bookings["b0007"].Status = booking.StatusApproved
	f.clock = f.clock.Add(notifyCooldown)
	_, err = f.svc.Preview(context.Background(), user.RoleStaff, upload())
	require.NoError(t, err)
	assert.Len(t, f.notifier.sent, 2)
}

func TestPreviewPastOccurrenceDoesNotAdopt(t *testing.T) {
	f := newFixture(t)
	f.ledger.bookings["b0003"] = &booking.Booking{
		ID: "b0003", RoomID: "R1", UserID: "t01",
		Date: day("2026-01-14"), Start: at(10), End: at(11), Status: booking.StatusApproved,
	}

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t, sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-14", start: "10:00", end: "12:00", repeat: "1"}))
	require.NoError(t, err)

	assert.Zero(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0].Reason, "b0003")
	assert.Equal(t, booking.StatusApproved, f.ledger.bookings["b0003"].Status, "past bookings are never auto-cancelled")
	assert.Empty(t, f.notifier.sent)
}

func TestPreviewBadRowsDoNotBlockSiblings(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Preview(context.Background(), user.RoleStaff,
		workbook(t,
			sheetRow{roomID: "R1", subject: "Calculus", userID: "t01", date: "2026-01-28", start: "09:00", end: "10:00", repeat: "1"},
			sheetRow{roomID: "R1", subject: "Physics", userID: "t01", date: "not-a-date", start: "09:00", end: "10:00", repeat: "1"},
			sheetRow{roomID: "R1", subject: "Biology", userID: "t01", date: "2026-01-28", start: "14:00", end: "13:00", repeat: "1"},
		))
	require.NoError(t, err)

	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 2, report.Errored)
}

func TestConfirmAssignsRandomIDsAndPersists(t *testing.T) {
	f := newFixture(t)
	occs := []Occurrence{
		{RoomID: "R1", SubjectName: "Calculus", TeacherID: "t01", Date: day("2026-01-28"), Start: at(9), End: at(11)},
		{RoomID: "R1", SubjectName: "Calculus", TeacherID: "t01", Date: day("2026-02-04"), Start: at(9), End: at(11)},
	}

	inserted, err := f.svc.Confirm(context.Background(), user.RoleStaff, occs)
	require.NoError(t, err)
	require.Len(t, inserted, 2)
	assert.NotEmpty(t, inserted[0].ID)
	assert.NotEqual(t, inserted[0].ID, inserted[1].ID)
	assert.Len(t, f.repo.occurrences, 2)
}

func TestConfirmGuards(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(context.Background(), user.RoleTeacher, []Occurrence{{RoomID: "R1"}})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Confirm(context.Background(), user.RoleStaff, nil)
	assert.ErrorIs(t, err, ErrEmptyConfirm)
}

func TestSetClosedOwnership(t *testing.T) {
	f := newFixture(t)
	f.repo.occurrences["sc1"] = &Occurrence{ID: "sc1", RoomID: "R1", TeacherID: "t01", Date: day("2026-01-28"), Start: at(9), End: at(10)}

	_, err := f.svc.SetClosed(context.Background(), "t02", user.RoleTeacher, "sc1", true)
	assert.ErrorIs(t, err, ErrForbidden)

	occ, err := f.svc.SetClosed(context.Background(), "t01", user.RoleTeacher, "sc1", true)
	require.NoError(t, err)
	assert.True(t, occ.TemporarilyClosed)
	assert.True(t, f.repo.occurrences["sc1"].TemporarilyClosed)

	// Staff may close any class.
	_, err = f.svc.SetClosed(context.Background(), "s01", user.RoleStaff, "sc1", false)
	require.NoError(t, err)
	assert.False(t, f.repo.occurrences["sc1"].TemporarilyClosed)
}

func TestExpandDeterminism(t *testing.T) {
	row := ImportRow{RoomID: "R1", SubjectName: "Calculus", Date: day("2026-01-28"), Start: at(9), End: at(11), Repeat: 3}
	occs := row.Expand("t01")
	require.Len(t, occs, 3)
	want := []string{"2026-01-28", "2026-02-04", "2026-02-11"}
	for i, w := range want {
		assert.Equal(t, w, occs[i].Date.Format(timeslot.DateLayout))
	}
}

func TestHistorySourceListsOnlyClosedClasses(t *testing.T) {
	repo := newMockRepo()
	repo.occurrences["sc1"] = &Occurrence{
		ID: "sc1", RoomID: "R1", SubjectName: "Databases", TeacherID: "t01",
		Date: day("2025-02-20"), Start: at(13), End: at(15), TemporarilyClosed: true,
	}
	repo.occurrences["sc2"] = &Occurrence{
		ID: "sc2", RoomID: "R1", SubjectName: "Calculus", TeacherID: "t01",
		Date: day("2025-02-21"), Start: at(9), End: at(11),
	}
	repo.occurrences["sc3"] = &Occurrence{
		ID: "sc3", RoomID: "R2", SubjectName: "Physics", TeacherID: "t02",
		Date: day("2025-02-22"), Start: at(9), End: at(11), TemporarilyClosed: true,
	}

	classes, err := NewHistorySource(repo).ListClosedForTeacher(context.Background(), "t01")
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "sc1", classes[0].ScheduleID)
	assert.Equal(t, "Databases", classes[0].SubjectName)
	assert.Equal(t, at(13), classes[0].Start)
}
