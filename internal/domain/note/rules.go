package note

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/domain/appointment"
	"github.com/mentalspace/ehr/internal/platform/apperror"
)

// AppointmentSource is the slice of the appointment repository the
// validation rules need.
type AppointmentSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
}

// Rules enforces the documentation rules that gate note creation and
// signing. The checks run in a fixed order: appointment linkage first,
// sequential documentation second. Tests depend on that order.
type Rules struct {
	notes        Repository
	appointments AppointmentSource
}

func NewRules(notes Repository, appointments AppointmentSource) *Rules {
	return &Rules{notes: notes, appointments: appointments}
}

// ValidateAppointmentRequirement checks that note types requiring session
// documentation are linked to a real appointment for the right client and
// clinician, in a state that can be documented. Drafts are exempt so
// clinicians can start writing before the session is scheduled.
func (r *Rules) ValidateAppointmentRequirement(ctx context.Context, noteType string, clientID, clinicianID uuid.UUID, appointmentID *uuid.UUID, status string) error {
	if status == "" || status == StatusDraft {
		return nil
	}
	if !appointmentRequiredTypes[noteType] {
		return nil
	}
	if appointmentID == nil {
		return apperror.BadRequest("%s requires an appointment. Please link this note to an appointment.", noteType)
	}

	appt, err := r.appointments.GetByID(ctx, *appointmentID)
	if err != nil || appt == nil {
		return apperror.BadRequest("The linked appointment does not exist")
	}
	if appt.ClientID != clientID {
		return apperror.BadRequest("The linked appointment does not belong to this client")
	}
	if appt.ClinicianID != clinicianID {
		return apperror.BadRequest("The linked appointment does not belong to this clinician")
	}
	if !validAppointmentStatuses[appt.Status] {
		return apperror.BadRequest("Appointment status %s is not valid for creating notes", appt.Status)
	}
	return nil
}

// ValidateSequentialDocumentation blocks ongoing-care note types until the
// client has a completed Intake Assessment.
func (r *Rules) ValidateSequentialDocumentation(ctx context.Context, noteType string, clientID uuid.UUID) error {
	if !intakeRequiredTypes[noteType] {
		return nil
	}
	ok, err := r.notes.HasCompletedIntake(ctx, clientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.BadRequest("Cannot create a %s without a completed Intake Assessment for this client", noteType)
	}
	return nil
}

// ValidateNoteCreation runs the full rule chain for a note entering a
// non-draft state.
func (r *Rules) ValidateNoteCreation(ctx context.Context, noteType string, clientID, clinicianID uuid.UUID, appointmentID *uuid.UUID, status string) error {
	if err := r.ValidateAppointmentRequirement(ctx, noteType, clientID, clinicianID, appointmentID, status); err != nil {
		return err
	}
	return r.ValidateSequentialDocumentation(ctx, noteType, clientID)
}
