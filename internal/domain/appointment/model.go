package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Notes may only be attached to appointments in the
// note-eligible subset (see note package).
const (
	StatusScheduled = "SCHEDULED"
	StatusConfirmed = "CONFIRMED"
	StatusCheckedIn = "CHECKED_IN"
	StatusInSession = "IN_SESSION"
	StatusCompleted = "COMPLETED"
	StatusCancelled = "CANCELLED"
	StatusNoShow    = "NO_SHOW"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	ClientID        uuid.UUID  `db:"client_id" json:"clientId"`
	ClinicianID     uuid.UUID  `db:"clinician_id" json:"clinicianId"`
	Status          string     `db:"status" json:"status"`
	AppointmentDate time.Time  `db:"appointment_date" json:"appointmentDate"`
	StartTime       *time.Time `db:"start_time" json:"startTime,omitempty"`
	EndTime         *time.Time `db:"end_time" json:"endTime,omitempty"`
	AppointmentType *string    `db:"appointment_type" json:"appointmentType,omitempty"`
	Location        *string    `db:"location" json:"location,omitempty"`
	Note            *string    `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}
