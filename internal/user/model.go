package user

import (
	"net/http"
	"time"

	"github.com/nisitlab/room-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(apperror.KindNotFound, http.StatusNotFound, "user not found")
	ErrDuplicate    = apperror.New(apperror.KindDuplicate, http.StatusConflict, "user id or email already registered")
	ErrInvalidInput = apperror.New(apperror.KindValidation, http.StatusBadRequest, "missing required user fields")
	ErrInvalidRole  = apperror.New(apperror.KindValidation, http.StatusBadRequest, "invalid role")
)

// User represents an account in the department's directory. The ID is the
// institutional code (e.g. "u0001" or a staff number), assigned upstream, not
// generated here.
type User struct {
	ID         string
	Title      string
	Name       string
	Surname    string
	Email      string
	Role       Role
	IsVerified bool
	IsActive   bool
	CreatedAt  time.Time
}

// FullName is the display form used in emails and schedule views.
func (u *User) FullName() string {
	if u.Surname == "" {
		return u.Name
	}
	return u.Name + " " + u.Surname
}

// Filter defines filter options for listing users.
type Filter struct {
	Role     Role
	IsActive *bool // pointer to distinguish false from not-set

	Page     int
	PageSize int
}
