package http

import (
	"time"

	"github.com/nisitlab/room-booking-backend/internal/user"
)

// UserTag holds minimal user info for embedding in other responses.
type UserTag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CreateUserRequest struct {
	ID      string `json:"user_id" binding:"required"`
	Title   string `json:"title"`
	Name    string `json:"name" binding:"required"`
	Surname string `json:"surname"`
	Email   string `json:"email" binding:"required,email"`
	Role    string `json:"role" binding:"required,oneof=student teacher staff admin"`
}

type UserResponse struct {
	ID         string    `json:"user_id"`
	Title      string    `json:"title,omitempty"`
	Name       string    `json:"name"`
	Surname    string    `json:"surname"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Title:      u.Title,
		Name:       u.Name,
		Surname:    u.Surname,
		Email:      u.Email,
		Role:       string(u.Role),
		IsVerified: u.IsVerified,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

type ListUsersRequest struct {
	Role     string `form:"role" binding:"omitempty,oneof=student teacher staff admin"`
	Page     int    `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}
