package note

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository provides access to clinical note records. Methods that feed
// the validation rules return (nil, nil) rather than an error when no row
// matches, so callers can distinguish absence from failure.
type Repository interface {
	Create(ctx context.Context, n *ClinicalNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error)
	Update(ctx context.Context, n *ClinicalNote) error
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns one page of notes matching the filters, restricted to
	// the given clinicians (nil means all), plus the unpaged total.
	List(ctx context.Context, f Filters, clinicianIDs []uuid.UUID, limit, offset int) ([]*ClinicalNote, int, error)

	// GetByAppointment returns the note linked to an appointment, or nil.
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ClinicalNote, error)

	// HasCompletedIntake reports whether the client has a signed, co-signed
	// or locked Intake Assessment.
	HasCompletedIntake(ctx context.Context, clientID uuid.UUID) (bool, error)

	// LatestCompletedTreatmentPlan returns the most recently signed
	// Treatment Plan for the client, or nil.
	LatestCompletedTreatmentPlan(ctx context.Context, clientID uuid.UUID) (*ClinicalNote, error)

	// ListByStatus returns notes in any of the given statuses, restricted
	// to the given clinicians (nil means all), oldest session first.
	ListByStatus(ctx context.Context, statuses []string, clinicianIDs []uuid.UUID) ([]*ClinicalNote, error)

	// ListUnsignedBefore returns unsigned, unlocked DRAFT and
	// PENDING_COSIGN notes whose session date is before the cutoff.
	ListUnsignedBefore(ctx context.Context, cutoff time.Time, clinicianIDs []uuid.UUID) ([]*ClinicalNote, error)

	// AppointmentIDsWithNotes returns the set of appointment ids that have
	// a linked note in any of the given statuses.
	AppointmentIDsWithNotes(ctx context.Context, statuses []string) (map[uuid.UUID]bool, error)

	// StatsFor aggregates note counts for the given clinicians (nil means
	// all). Overdue counts unsigned, unlocked DRAFT and PENDING_COSIGN
	// notes whose session date is before the cutoff.
	StatsFor(ctx context.Context, clinicianIDs []uuid.UUID, overdueCutoff time.Time) (*Stats, error)
}
