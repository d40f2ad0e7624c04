package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/platform/apperror"
)

type fakeApptRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (f *fakeApptRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appointments[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := f.appointments[a.ID]; !ok {
		return errors.New("no rows")
	}
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeApptRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range f.appointments {
		if v, ok := params["clientId"]; ok && v != a.ClientID.String() {
			continue
		}
		if v, ok := params["status"]; ok && v != a.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeApptRepo) ListCompletedSince(_ context.Context, since time.Time, clinicianIDs []uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range f.appointments {
		if a.Status != StatusCompleted || a.AppointmentDate.Before(since) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func validAppointment() *Appointment {
	return &Appointment{
		ClientID:        uuid.New(),
		ClinicianID:     uuid.New(),
		AppointmentDate: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc := NewService(newFakeApptRepo())
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(a *Appointment)
		message string
	}{
		{"missing client", func(a *Appointment) { a.ClientID = uuid.Nil }, "clientId is required"},
		{"missing clinician", func(a *Appointment) { a.ClinicianID = uuid.Nil }, "clinicianId is required"},
		{"missing date", func(a *Appointment) { a.AppointmentDate = time.Time{} }, "appointmentDate is required"},
		{"invalid status", func(a *Appointment) { a.Status = "PENDING" }, "invalid status: PENDING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAppointment()
			tt.mutate(a)
			err := svc.CreateAppointment(ctx, a)
			if !apperror.IsKind(err, apperror.KindBadRequest) {
				t.Fatalf("expected bad request, got %v", err)
			}
			if msg := apperror.MessageOf(err); msg != tt.message {
				t.Errorf("expected %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestCreateAppointment_DefaultsToScheduled(t *testing.T) {
	repo := newFakeApptRepo()
	svc := NewService(repo)

	a := validAppointment()
	if err := svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", a.Status)
	}
	if _, ok := repo.appointments[a.ID]; !ok {
		t.Error("expected appointment to be persisted")
	}
}

func TestCreateAppointment_AcceptsAllStatuses(t *testing.T) {
	svc := NewService(newFakeApptRepo())

	for _, status := range []string{
		StatusScheduled, StatusConfirmed, StatusCheckedIn,
		StatusInSession, StatusCompleted, StatusCancelled, StatusNoShow,
	} {
		a := validAppointment()
		a.Status = status
		if err := svc.CreateAppointment(context.Background(), a); err != nil {
			t.Errorf("status %s: unexpected error: %v", status, err)
		}
	}
}

func TestGetAppointment(t *testing.T) {
	repo := newFakeApptRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a := validAppointment()
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ClientID != a.ClientID {
		t.Errorf("expected client %s, got %s", a.ClientID, got.ClientID)
	}

	_, err = svc.GetAppointment(ctx, uuid.New())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if msg := apperror.MessageOf(err); msg != "Appointment not found" {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestUpdateAppointment_StatusTransition(t *testing.T) {
	repo := newFakeApptRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a := validAppointment()
	if err := svc.CreateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Status = "DONE"
	err := svc.UpdateAppointment(ctx, a)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}

	a.Status = StatusCompleted
	if err := svc.UpdateAppointment(ctx, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := repo.appointments[a.ID].Status; got != StatusCompleted {
		t.Errorf("expected COMPLETED to persist, got %s", got)
	}
}

func TestSearchAppointments(t *testing.T) {
	repo := newFakeApptRepo()
	svc := NewService(repo)
	ctx := context.Background()

	clientID := uuid.New()
	for i := 0; i < 3; i++ {
		a := validAppointment()
		if i < 2 {
			a.ClientID = clientID
		}
		if err := svc.CreateAppointment(ctx, a); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, total, err := svc.SearchAppointments(ctx, map[string]string{"clientId": clientID.String()}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Errorf("expected 2 matches, got %d (total %d)", len(got), total)
	}
}
