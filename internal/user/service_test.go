package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	users map[string]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[string]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; ok {
		return ErrDuplicate
	}
	m.users[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mockRepo) FindByName(_ context.Context, name, surname string) (*User, error) {
	for _, u := range m.users {
		if u.Name == name && u.Surname == surname {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, filter Filter) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func TestCreateNormalizesInput(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), CreateRequest{
		ID:      "t01",
		Name:    "Anan",
		Surname: "Srisuwan",
		Email:   "  Anan.S@Dept.Example ",
		Role:    "teacher",
	})
	require.NoError(t, err)
	assert.Equal(t, "anan.s@dept.example", u.Email)
	assert.Equal(t, RoleTeacher, u.Role)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMockRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		ID: "x01", Name: "X", Email: "x@dept.example", Role: "janitor",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRoleCapabilities(t *testing.T) {
	assert.False(t, RoleStudent.CanBook())
	assert.True(t, RoleTeacher.CanBook())
	assert.False(t, RoleTeacher.CanApprove())
	assert.True(t, RoleStaff.CanApprove())
	assert.True(t, RoleAdmin.CanImportSchedules())
	assert.False(t, RoleStaff.KeepsApprovalOnEdit())
	assert.True(t, RoleAdmin.KeepsApprovalOnEdit())
}
