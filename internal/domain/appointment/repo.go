package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository provides access to appointment records.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	// ListCompletedSince returns COMPLETED appointments on or after since,
	// optionally restricted to the given clinicians (nil means all).
	ListCompletedSince(ctx context.Context, since time.Time, clinicianIDs []uuid.UUID) ([]*Appointment, error)
}
