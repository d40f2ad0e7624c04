package diagnosis

import (
	"context"

	"github.com/google/uuid"
)

// Repository provides access to diagnosis records and their audit trail.
type Repository interface {
	Create(ctx context.Context, d *Diagnosis) error
	GetByID(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	Update(ctx context.Context, d *Diagnosis) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByClient(ctx context.Context, clientID uuid.UUID, activeOnly bool) ([]*Diagnosis, error)

	AddHistory(ctx context.Context, h *HistoryEntry) error
	ListHistory(ctx context.Context, diagnosisID uuid.UUID) ([]*HistoryEntry, error)
}
