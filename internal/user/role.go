package user

// Role is the closed set of account roles. Permission checks go through the
// capability methods below instead of string comparisons in handlers.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleStaff, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

// CanApprove reports whether the role may decide pending bookings and create
// self-approved ones.
func (r Role) CanApprove() bool {
	return r == RoleStaff || r == RoleAdmin
}

// CanManageRooms reports whether the role may create, edit and soft-delete rooms.
func (r Role) CanManageRooms() bool {
	return r == RoleStaff || r == RoleAdmin
}

// CanImportSchedules reports whether the role may run the timetable import.
func (r Role) CanImportSchedules() bool {
	return r == RoleStaff || r == RoleAdmin
}

// KeepsApprovalOnEdit reports whether edits by this role retain an existing
// approval. Everyone else drops back to pending when a booking changes.
func (r Role) KeepsApprovalOnEdit() bool {
	return r == RoleAdmin
}

// CanBook reports whether the role may request bookings at all.
func (r Role) CanBook() bool {
	return r != RoleStudent
}
