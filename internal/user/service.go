package user

import (
	"context"
	"strings"
)

// CreateRequest carries the fields for registering a directory account.
type CreateRequest struct {
	ID      string
	Title   string
	Name    string
	Surname string
	Email   string
	Role    string
}

// Service defines business logic related to users.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	FindByName(ctx context.Context, name, surname string) (*User, error)
	List(ctx context.Context, filter Filter) ([]*User, int, error)
}

type service struct {
	repo Repository
}

// NewService creates a new user Service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	id := strings.TrimSpace(req.ID)
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if id == "" || name == "" || email == "" {
		return nil, ErrInvalidInput
	}

	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:         id,
		Title:      strings.TrimSpace(req.Title),
		Name:       name,
		Surname:    strings.TrimSpace(req.Surname),
		Email:      email,
		Role:       role,
		IsVerified: false,
		IsActive:   true,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) FindByName(ctx context.Context, name, surname string) (*User, error) {
	return s.repo.FindByName(ctx, name, surname)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*User, int, error) {
	return s.repo.List(ctx, filter)
}
