package signature

import (
	"context"

	"github.com/google/uuid"
)

// EventRepository stores signature events.
type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]*Event, error)
	Revoke(ctx context.Context, e *Event) error
}

// AttestationRepository resolves attestation texts. FindActive returns
// (nil, nil) when no active attestation matches, so the service can walk
// the fallback chain.
type AttestationRepository interface {
	Create(ctx context.Context, a *Attestation) error
	FindActive(ctx context.Context, role, noteType, jurisdiction string) (*Attestation, error)
}
