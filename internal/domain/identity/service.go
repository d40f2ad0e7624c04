package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/platform/apperror"
)

var validRoles = map[string]bool{
	"CLINICIAN":     true,
	"SUPERVISOR":    true,
	"ADMINISTRATOR": true,
	"BILLER":        true,
	"SCHEDULER":     true,
}

type Service struct {
	users Repository
}

func NewService(users Repository) *Service {
	return &Service{users: users}
}

func (s *Service) CreateUser(ctx context.Context, u *User) error {
	if u.Email == "" {
		return apperror.BadRequest("email is required")
	}
	if u.FirstName == "" || u.LastName == "" {
		return apperror.BadRequest("firstName and lastName are required")
	}
	if len(u.Roles) == 0 {
		u.Roles = []string{"CLINICIAN"}
	}
	for _, role := range u.Roles {
		if !validRoles[role] {
			return apperror.BadRequest("invalid role: %s", role)
		}
	}
	u.IsActive = true
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("User not found")
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	for _, role := range u.Roles {
		if !validRoles[role] {
			return apperror.BadRequest("invalid role: %s", role)
		}
	}
	return s.users.Update(ctx, u)
}

func (s *Service) ListSupervisees(ctx context.Context, supervisorID uuid.UUID) ([]*User, error) {
	return s.users.ListSupervisees(ctx, supervisorID)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}
