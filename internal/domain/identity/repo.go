package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides access to user records.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdateSignaturePin(ctx context.Context, id uuid.UUID, pinHash string) error
	UpdateSignaturePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ListSupervisees(ctx context.Context, supervisorID uuid.UUID) ([]*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
}
