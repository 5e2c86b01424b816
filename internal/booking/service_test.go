package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nisitlab/room-booking-backend/internal/notify"
	"github.com/nisitlab/room-booking-backend/internal/pkg/timeslot"
	"github.com/nisitlab/room-booking-backend/internal/room"
	"github.com/nisitlab/room-booking-backend/internal/user"
)

type fakeSchedule struct {
	roomID  string
	date    time.Time
	subject string
	start   timeslot.TimeOfDay
	end     timeslot.TimeOfDay
	closed  bool
}

// mockRepo mirrors the repository's conflict semantics in memory: same
// half-open predicate, same approved-over-pending precedence, same counter id.
type mockRepo struct {
	bookings  map[string]*Booking
	schedules []fakeSchedule
	counter   int
	purged    int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{bookings: make(map[string]*Booking)}
}

func (m *mockRepo) conflicts(b *Booking, excludeID string) error {
	for _, sc := range m.schedules {
		if sc.roomID == b.RoomID && sc.date.Equal(b.Date) && !sc.closed &&
			timeslot.Overlaps(b.Start, b.End, sc.start, sc.end) {
			return ErrScheduleConflict.WithMessage(
				fmt.Sprintf("requested time collides with class %q (%s-%s)", sc.subject, sc.start, sc.end))
		}
	}
	var pendingHit *Booking
	for _, other := range m.bookings {
		if other.ID == excludeID || other.RoomID != b.RoomID || !other.Date.Equal(b.Date) ||
			!other.Status.Active() || !timeslot.Overlaps(b.Start, b.End, other.Start, other.End) {
			continue
		}
		if other.Status == StatusApproved {
			return ErrApprovedConflict
		}
		pendingHit = other
	}
	if pendingHit != nil {
		return ErrPendingConflict
	}
	return nil
}

func (m *mockRepo) Admit(_ context.Context, b *Booking) error {
	if err := m.conflicts(b, ""); err != nil {
		return err
	}
	m.counter++
	b.ID = fmt.Sprintf("b%04d", m.counter)
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateChecked(_ context.Context, b *Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		return ErrNotFound
	}
	if err := m.conflicts(b, b.ID); err != nil {
		return err
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id string, status Status, approverID string) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	b.ApproverID = approverID
	return nil
}

func (m *mockRepo) Cancel(_ context.Context, id string) error {
	b, ok := m.bookings[id]
	if !ok || !b.Status.Active() {
		return ErrNotCancellable
	}
	b.Status = StatusCancelled
	return nil
}

func (m *mockRepo) ListByStatus(_ context.Context, status Status, _, _ int) ([]*Booking, int, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListMine(_ context.Context, userID string, today time.Time) ([]*Booking, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.UserID != userID || !b.Status.Active() || b.Date.Before(today) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *mockRepo) ListHistory(_ context.Context, userID string, today time.Time) ([]*Booking, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		if b.Date.Before(today) || b.Status.Terminal() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockRepo) ListActiveOverlapping(_ context.Context, roomID string, date time.Time, start, end timeslot.TimeOfDay) ([]*Booking, error) {
	var out []*Booking
	for _, b := range m.bookings {
		if b.RoomID == roomID && b.Date.Equal(date) && b.Status.Active() &&
			timeslot.Overlaps(start, end, b.Start, b.End) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *mockRepo) CancelByIDs(_ context.Context, ids []string) error {
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok && b.Status.Active() {
			b.Status = StatusCancelled
		}
	}
	return nil
}

func (m *mockRepo) PurgeExpired(_ context.Context, today time.Time, retention time.Duration) (int64, error) {
	var n int64
	cutoff := today.Add(-retention)
	for id, b := range m.bookings {
		if b.Status == StatusPending && b.Date.Before(today) {
			delete(m.bookings, id)
			n++
		} else if b.Status != StatusPending && b.Date.Before(cutoff) {
			delete(m.bookings, id)
			n++
		}
	}
	m.purged += n
	return n, nil
}

type mockRooms struct {
	rooms map[string]*room.Room
}

func (m *mockRooms) GetByID(_ context.Context, id string) (*room.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, room.ErrNotFound
	}
	return r, nil
}

type mockUsers struct {
	users map[string]*user.User
}

func (m *mockUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type mockNotifier struct {
	sent []notify.Message
}

func (m *mockNotifier) Enqueue(msg notify.Message) {
	m.sent = append(m.sent, msg)
}

type mockClasses struct {
	closed map[string][]ClosedClass // keyed by teacher id
}

func (m *mockClasses) ListClosedForTeacher(_ context.Context, teacherID string) ([]ClosedClass, error) {
	return m.closed[teacherID], nil
}

type fixture struct {
	repo     *mockRepo
	rooms    *mockRooms
	users    *mockUsers
	classes  *mockClasses
	notifier *mockNotifier
	svc      *service
}

var testNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.Local)

func newFixture() *fixture {
	f := &fixture{
		repo: newMockRepo(),
		rooms: &mockRooms{rooms: map[string]*room.Room{
			"R1": {ID: "R1", IsActive: true},
		}},
		users: &mockUsers{users: map[string]*user.User{
			"t01": {ID: "t01", Email: "t01@dept.example", Role: user.RoleTeacher},
			"s01": {ID: "s01", Email: "s01@dept.example", Role: user.RoleStaff},
		}},
		classes:  &mockClasses{closed: map[string][]ClosedClass{}},
		notifier: &mockNotifier{},
	}
	svc := NewService(f.repo, f.rooms, f.users, f.classes, f.notifier, zap.NewNop(), 30*24*time.Hour).(*service)
	svc.now = func() time.Time { return testNow }
	f.svc = svc
	return f
}

func at(h int) timeslot.TimeOfDay { return timeslot.TimeOfDay{Hour: h} }

func day(s string) time.Time {
	d, err := timeslot.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func request(date string, start, end int) CreateRequest {
	return CreateRequest{RoomID: "R1", Purpose: "seminar", Date: day(date), Start: at(start), End: at(end)}
}

func TestCleanBookingIsPending(t *testing.T) {
	f := newFixture()

	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	assert.Equal(t, "b0001", b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Empty(t, b.ApproverID)
}

func TestStaffSelfApproves(t *testing.T) {
	f := newFixture()

	b, err := f.svc.Create(context.Background(), "s01", user.RoleStaff, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, b.Status)
	assert.Equal(t, "s01", b.ApproverID)
}

func TestStudentsCannotBook(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "x01", user.RoleStudent, request("2025-03-10", 9, 10))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestScheduleCollisionRejected(t *testing.T) {
	f := newFixture()
	f.repo.schedules = append(f.repo.schedules, fakeSchedule{
		roomID: "R1", date: day("2025-03-10"), subject: "Linear Algebra", start: at(9), end: at(11),
	})

	_, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher,
		CreateRequest{RoomID: "R1", Purpose: "seminar", Date: day("2025-03-10"),
			Start: timeslot.TimeOfDay{Hour: 9, Minute: 30}, End: timeslot.TimeOfDay{Hour: 10, Minute: 30}})
	require.ErrorIs(t, err, ErrScheduleConflict)
	assert.Contains(t, err.Error(), "Linear Algebra")
}

func TestClosedScheduleDoesNotBlock(t *testing.T) {
	f := newFixture()
	f.repo.schedules = append(f.repo.schedules, fakeSchedule{
		roomID: "R1", date: day("2025-03-10"), subject: "Linear Algebra", start: at(9), end: at(11), closed: true,
	})

	_, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	assert.NoError(t, err)
}

func TestApprovedBeatsPending(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "s01", user.RoleStaff, request("2025-03-10", 9, 10))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), "t01", user.RoleTeacher,
		CreateRequest{RoomID: "R1", Purpose: "seminar", Date: day("2025-03-10"),
			Start: timeslot.TimeOfDay{Hour: 9, Minute: 30}, End: timeslot.TimeOfDay{Hour: 10, Minute: 30}})
	assert.ErrorIs(t, err, ErrApprovedConflict)
}

func TestPendingBlocksSubsequentPending(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 11))
	assert.ErrorIs(t, err, ErrPendingConflict)
}

func TestBackToBackSlotsDoNotConflict(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "s01", user.RoleStaff, request("2025-03-10", 9, 10))
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 10, 11))
	assert.NoError(t, err)
}

func TestRetroactiveBookingRejected(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-02-28", 9, 10))
	assert.ErrorIs(t, err, ErrTemporalInvalid)

	// Today at a time that already passed (fixture clock reads 08:00).
	_, err = f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-01", 7, 9))
	assert.ErrorIs(t, err, ErrTemporalInvalid)

	// Today, later: fine.
	_, err = f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-01", 9, 10))
	assert.NoError(t, err)
}

func TestInactiveRoomRejected(t *testing.T) {
	f := newFixture()
	f.rooms.rooms["R1"].Repair = true

	_, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	assert.ErrorIs(t, err, room.ErrInactive)
}

func TestApproveNotifiesOwner(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), "t01", user.RoleTeacher, b.ID, StatusApproved)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.svc.UpdateStatus(context.Background(), "s01", user.RoleStaff, b.ID, StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, updated.Status)
	assert.Equal(t, "s01", updated.ApproverID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindBookingStatusChanged, f.notifier.sent[0].Kind)
	assert.Equal(t, "t01@dept.example", f.notifier.sent[0].Recipient)
}

func TestCancelGuards(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)

	// Not the owner.
	err = f.svc.Cancel(context.Background(), "s01", b.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.Cancel(context.Background(), "t01", b.ID))

	// Already cancelled: same error every time, state untouched.
	err = f.svc.Cancel(context.Background(), "t01", b.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)
	got, _ := f.repo.GetByID(context.Background(), b.ID)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestCancelPastBookingRejected(t *testing.T) {
	f := newFixture()
	f.repo.bookings["b9999"] = &Booking{
		ID: "b9999", RoomID: "R1", UserID: "t01",
		Date: day("2025-02-20"), Start: at(9), End: at(10), Status: StatusApproved,
	}

	err := f.svc.Cancel(context.Background(), "t01", "b9999")
	assert.ErrorIs(t, err, ErrTemporalInvalid)
}

func TestEditResetsApproval(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), "s01", user.RoleStaff, b.ID, StatusApproved)
	require.NoError(t, err)

	// Same slot, same everything: the edit itself still voids the approval.
	edited, err := f.svc.Edit(context.Background(), "t01", user.RoleTeacher, b.ID, EditRequest{
		Purpose: "seminar", Date: day("2025-03-10"), Start: at(9), End: at(10),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, edited.Status)
	assert.Empty(t, edited.ApproverID)
}

func TestAdminEditKeepsApproval(t *testing.T) {
	f := newFixture()
	f.users.users["a01"] = &user.User{ID: "a01", Email: "a01@dept.example", Role: user.RoleAdmin}

	b, err := f.svc.Create(context.Background(), "a01", user.RoleAdmin, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	require.Equal(t, StatusApproved, b.Status)

	edited, err := f.svc.Edit(context.Background(), "a01", user.RoleAdmin, b.ID, EditRequest{
		Purpose: "faculty meeting", Date: day("2025-03-10"), Start: at(13), End: at(14),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, edited.Status)
}

func TestEditCancelledBookingRejected(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(context.Background(), "t01", b.ID))

	_, err = f.svc.Edit(context.Background(), "t01", user.RoleTeacher, b.ID, EditRequest{
		Purpose: "seminar", Date: day("2025-03-11"), Start: at(9), End: at(10),
	})
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestEditRechecksConflicts(t *testing.T) {
	f := newFixture()
	b, err := f.svc.Create(context.Background(), "t01", user.RoleTeacher, request("2025-03-10", 9, 10))
	require.NoError(t, err)
	_, err = f.svc.Create(context.Background(), "s01", user.RoleStaff, request("2025-03-10", 13, 14))
	require.NoError(t, err)

	_, err = f.svc.Edit(context.Background(), "t01", user.RoleTeacher, b.ID, EditRequest{
		Purpose: "seminar", Date: day("2025-03-10"), Start: at(13), End: at(15),
	})
	assert.ErrorIs(t, err, ErrApprovedConflict)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture()
	f.repo.bookings["b0100"] = &Booking{ID: "b0100", Status: StatusPending, Date: day("2025-02-27")}
	f.repo.bookings["b0101"] = &Booking{ID: "b0101", Status: StatusCancelled, Date: day("2024-12-01")}
	f.repo.bookings["b0102"] = &Booking{ID: "b0102", Status: StatusApproved, Date: day("2025-02-20")}

	n, err := f.svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	_, err = f.repo.GetByID(context.Background(), "b0102")
	assert.NoError(t, err, "terminal bookings inside the retention window stay")
}

func TestListMineReturnsOnlyUpcomingActive(t *testing.T) {
	f := newFixture()
	f.repo.bookings["b0200"] = &Booking{ID: "b0200", UserID: "t01", Status: StatusPending, Date: day("2025-03-10")}
	f.repo.bookings["b0201"] = &Booking{ID: "b0201", UserID: "t01", Status: StatusApproved, Date: day("2025-02-10")}
	f.repo.bookings["b0202"] = &Booking{ID: "b0202", UserID: "t01", Status: StatusRejected, Date: day("2025-03-15")}

	active, err := f.svc.ListMine(context.Background(), "t01")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "b0200", active[0].ID)
}

func TestListHistoryExcludesUpcomingActive(t *testing.T) {
	f := newFixture()
	f.repo.bookings["b0200"] = &Booking{ID: "b0200", UserID: "t01", Status: StatusPending, Date: day("2025-03-10")}
	f.repo.bookings["b0201"] = &Booking{ID: "b0201", UserID: "t01", Status: StatusApproved, Date: day("2025-02-10")}
	f.repo.bookings["b0202"] = &Booking{ID: "b0202", UserID: "t01", Status: StatusRejected, Date: day("2025-03-15")}
	f.repo.bookings["b0203"] = &Booking{ID: "b0203", UserID: "t01", Status: StatusCancelled, Date: day("2025-01-05")}
	f.repo.bookings["b0204"] = &Booking{ID: "b0204", UserID: "s01", Status: StatusCancelled, Date: day("2025-01-05")}

	history, err := f.svc.ListHistory(context.Background(), "t01")
	require.NoError(t, err)

	ids := make([]string, len(history))
	for i, e := range history {
		require.Equal(t, HistoryBooking, e.Kind)
		ids[i] = e.Booking.ID
	}
	assert.Equal(t, []string{"b0202", "b0201", "b0203"}, ids,
		"past and terminal only, newest first; upcoming active rows stay in the active view")
}

func TestListHistoryMergesClosedClasses(t *testing.T) {
	f := newFixture()
	f.repo.bookings["b0201"] = &Booking{ID: "b0201", UserID: "t01", Status: StatusApproved, Date: day("2025-02-10"), Start: at(9)}
	f.repo.bookings["b0202"] = &Booking{ID: "b0202", UserID: "t01", Status: StatusRejected, Date: day("2025-03-15"), Start: at(9)}
	f.classes.closed["t01"] = []ClosedClass{
		{ScheduleID: "sch-1", RoomID: "R1", SubjectName: "Databases", Date: day("2025-02-20"), Start: at(13), End: at(15)},
	}

	history, err := f.svc.ListHistory(context.Background(), "t01")
	require.NoError(t, err)
	require.Len(t, history, 3)

	assert.Equal(t, HistoryBooking, history[0].Kind)
	assert.Equal(t, "b0202", history[0].Booking.ID)
	assert.Equal(t, HistoryClassCancelled, history[1].Kind)
	assert.Equal(t, "sch-1", history[1].Class.ScheduleID)
	assert.Equal(t, HistoryBooking, history[2].Kind)
	assert.Equal(t, "b0201", history[2].Booking.ID)
}
