package diagnosis

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/domain/note"
	"github.com/mentalspace/ehr/internal/platform/apperror"
)

// NoteSource is the slice of the note repository the diagnosis service
// needs: it resolves the note a modification is performed from.
type NoteSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*note.ClinicalNote, error)
}

type txRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	diagnoses Repository
	notes     NoteSource
	tx        txRunner
}

func NewService(diagnoses Repository, notes NoteSource, tx txRunner) *Service {
	return &Service{diagnoses: diagnoses, notes: notes, tx: tx}
}

// resolveWritableNote loads the note a diagnosis change is anchored to and
// rejects note types where diagnoses are read-only.
func (s *Service) resolveWritableNote(ctx context.Context, noteID uuid.UUID) (*note.ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, noteID)
	if err != nil {
		return nil, apperror.NotFound("Clinical note not found")
	}
	if !note.DiagnosisWritableTypes[n.NoteType] {
		return nil, apperror.BadRequest("Diagnoses are read-only in a %s. Diagnoses can only be created or modified in Intake Assessments and Treatment Plans.", n.NoteType)
	}
	return n, nil
}

// Create records a new diagnosis from an Intake Assessment or Treatment
// Plan. The row and its CREATED history entry commit together.
func (s *Service) Create(ctx context.Context, callerID, noteID uuid.UUID, d *Diagnosis) (*Diagnosis, error) {
	if d.ICDCode == "" || d.Description == "" {
		return nil, apperror.BadRequest("icdCode and description are required")
	}
	if d.Status == "" {
		d.Status = StatusActive
	}

	err := s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.resolveWritableNote(ctx, noteID)
		if err != nil {
			return err
		}
		if n.ClientID != d.ClientID {
			return apperror.BadRequest("This note belongs to a different client than the diagnosis")
		}

		d.CreatedInNote = &noteID
		if err := s.diagnoses.Create(ctx, d); err != nil {
			return err
		}
		return s.diagnoses.AddHistory(ctx, &HistoryEntry{
			DiagnosisID:       d.ID,
			ChangedBy:         callerID,
			ChangedInNote:     noteID,
			ChangedInNoteType: n.NoteType,
			ChangeType:        ChangeCreated,
			NewValues:         snapshot(d),
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateInput carries a partial diagnosis update.
type UpdateInput struct {
	ICDCode       *string
	Description   *string
	DiagnosisType *string
	Severity      *string
	Status        *string
	ChangeReason  *string
}

// Update modifies a diagnosis from a writable note, recording before and
// after snapshots. A change that only touches status is logged as a
// STATUS_CHANGE rather than a MODIFIED entry.
func (s *Service) Update(ctx context.Context, callerID, noteID, diagnosisID uuid.UUID, in UpdateInput) (*Diagnosis, error) {
	var updated *Diagnosis
	err := s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.resolveWritableNote(ctx, noteID)
		if err != nil {
			return err
		}
		d, err := s.diagnoses.GetByID(ctx, diagnosisID)
		if err != nil {
			return apperror.NotFound("Diagnosis not found")
		}
		if n.ClientID != d.ClientID {
			return apperror.BadRequest("This note belongs to a different client than the diagnosis")
		}

		old := snapshot(d)
		statusOnly := true
		if in.ICDCode != nil && *in.ICDCode != d.ICDCode {
			d.ICDCode = *in.ICDCode
			statusOnly = false
		}
		if in.Description != nil && *in.Description != d.Description {
			d.Description = *in.Description
			statusOnly = false
		}
		if in.DiagnosisType != nil {
			d.DiagnosisType = in.DiagnosisType
			statusOnly = false
		}
		if in.Severity != nil {
			d.Severity = in.Severity
			statusOnly = false
		}
		changeType := ChangeModified
		if in.Status != nil && *in.Status != d.Status {
			d.Status = *in.Status
			if statusOnly {
				changeType = ChangeStatusChange
			}
		}

		if err := s.diagnoses.Update(ctx, d); err != nil {
			return err
		}
		if err := s.diagnoses.AddHistory(ctx, &HistoryEntry{
			DiagnosisID:       d.ID,
			ChangedBy:         callerID,
			ChangedInNote:     noteID,
			ChangedInNoteType: n.NoteType,
			ChangeType:        changeType,
			OldValues:         old,
			NewValues:         snapshot(d),
			ChangeReason:      in.ChangeReason,
		}); err != nil {
			return err
		}
		updated = d
		return nil
	})
	return updated, err
}

// Delete removes a diagnosis from a writable note. The history entry
// outlives the row, preserving the audit trail.
func (s *Service) Delete(ctx context.Context, callerID, noteID, diagnosisID uuid.UUID, reason *string) error {
	return s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.resolveWritableNote(ctx, noteID)
		if err != nil {
			return err
		}
		d, err := s.diagnoses.GetByID(ctx, diagnosisID)
		if err != nil {
			return apperror.NotFound("Diagnosis not found")
		}
		if n.ClientID != d.ClientID {
			return apperror.BadRequest("This note belongs to a different client than the diagnosis")
		}

		if err := s.diagnoses.AddHistory(ctx, &HistoryEntry{
			DiagnosisID:       d.ID,
			ChangedBy:         callerID,
			ChangedInNote:     noteID,
			ChangedInNoteType: n.NoteType,
			ChangeType:        ChangeDeleted,
			OldValues:         snapshot(d),
			ChangeReason:      reason,
		}); err != nil {
			return err
		}
		return s.diagnoses.Delete(ctx, diagnosisID)
	})
}

// Get returns a single diagnosis.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Diagnosis, error) {
	d, err := s.diagnoses.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("Diagnosis not found")
	}
	return d, nil
}

// ListByClient returns a client's diagnoses, optionally only active ones.
func (s *Service) ListByClient(ctx context.Context, clientID uuid.UUID, activeOnly bool) ([]*Diagnosis, error) {
	items, err := s.diagnoses.ListByClient(ctx, clientID, activeOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Diagnosis{}
	}
	return items, nil
}

// GetHistory returns the audit trail for a diagnosis, newest first.
func (s *Service) GetHistory(ctx context.Context, diagnosisID uuid.UUID) ([]*HistoryEntry, error) {
	if _, err := s.diagnoses.GetByID(ctx, diagnosisID); err != nil {
		return nil, apperror.NotFound("Diagnosis not found")
	}
	items, err := s.diagnoses.ListHistory(ctx, diagnosisID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*HistoryEntry{}
	}
	return items, nil
}
