package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/platform/apperror"
)

var validStatuses = map[string]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
	StatusCheckedIn: true,
	StatusInSession: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

type Service struct {
	appointments Repository
}

func NewService(appointments Repository) *Service {
	return &Service{appointments: appointments}
}

func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ClientID == uuid.Nil {
		return apperror.BadRequest("clientId is required")
	}
	if a.ClinicianID == uuid.Nil {
		return apperror.BadRequest("clinicianId is required")
	}
	if a.AppointmentDate.IsZero() {
		return apperror.BadRequest("appointmentDate is required")
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !validStatuses[a.Status] {
		return apperror.BadRequest("invalid status: %s", a.Status)
	}
	return s.appointments.Create(ctx, a)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("Appointment not found")
	}
	return a, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if a.Status != "" && !validStatuses[a.Status] {
		return apperror.BadRequest("invalid status: %s", a.Status)
	}
	return s.appointments.Update(ctx, a)
}

func (s *Service) SearchAppointments(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, params, limit, offset)
}
