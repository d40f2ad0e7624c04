package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/domain/appointment"
	"github.com/mentalspace/ehr/internal/domain/identity"
	"github.com/mentalspace/ehr/internal/domain/note"
)

type fakeNoteSource struct {
	notes []*note.ClinicalNote
}

func scoped(clinicianIDs []uuid.UUID, id uuid.UUID) bool {
	if clinicianIDs == nil {
		return true
	}
	for _, c := range clinicianIDs {
		if c == id {
			return true
		}
	}
	return false
}

func (f *fakeNoteSource) ListByStatus(_ context.Context, statuses []string, clinicianIDs []uuid.UUID) ([]*note.ClinicalNote, error) {
	var out []*note.ClinicalNote
	for _, n := range f.notes {
		if !scoped(clinicianIDs, n.ClinicianID) {
			continue
		}
		for _, st := range statuses {
			if n.Status == st {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeNoteSource) ListUnsignedBefore(_ context.Context, cutoff time.Time, clinicianIDs []uuid.UUID) ([]*note.ClinicalNote, error) {
	var out []*note.ClinicalNote
	for _, n := range f.notes {
		if !scoped(clinicianIDs, n.ClinicianID) {
			continue
		}
		if n.SignedDate != nil || n.IsLocked {
			continue
		}
		if n.Status != note.StatusDraft && n.Status != note.StatusPendingCosign {
			continue
		}
		if n.SessionDate != nil && n.SessionDate.Before(cutoff) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNoteSource) AppointmentIDsWithNotes(_ context.Context, statuses []string) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for _, n := range f.notes {
		if n.AppointmentID == nil {
			continue
		}
		for _, st := range statuses {
			if n.Status == st {
				out[*n.AppointmentID] = true
				break
			}
		}
	}
	return out, nil
}

func (f *fakeNoteSource) StatsFor(_ context.Context, clinicianIDs []uuid.UUID, overdueCutoff time.Time) (*note.Stats, error) {
	return &note.Stats{}, nil
}

type fakeApptSource struct {
	appointments []*appointment.Appointment
}

func (f *fakeApptSource) ListCompletedSince(_ context.Context, since time.Time, clinicianIDs []uuid.UUID) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	for _, a := range f.appointments {
		if !scoped(clinicianIDs, a.ClinicianID) {
			continue
		}
		if a.Status == appointment.StatusCompleted && !a.AppointmentDate.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeUserDirectory struct {
	users []*identity.User
}

func (f *fakeUserDirectory) ListSupervisees(_ context.Context, supervisorID uuid.UUID) ([]*identity.User, error) {
	var out []*identity.User
	for _, u := range f.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			out = append(out, u)
		}
	}
	return out, nil
}

func timePtr(v time.Time) *time.Time { return &v }

func TestGetDashboard(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	clinicianID := uuid.New()
	clientID := uuid.New()

	documentedAppt := &appointment.Appointment{
		ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
		Status: appointment.StatusCompleted, AppointmentDate: now.AddDate(0, 0, -5),
	}
	// Ten days old and undocumented: both overdue and urgent.
	urgentAppt := &appointment.Appointment{
		ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
		Status: appointment.StatusCompleted, AppointmentDate: now.AddDate(0, 0, -10),
	}
	// Five days old and undocumented: overdue but not yet urgent.
	overdueAppt := &appointment.Appointment{
		ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
		Status: appointment.StatusCompleted, AppointmentDate: now.AddDate(0, 0, -5),
	}

	notes := &fakeNoteSource{notes: []*note.ClinicalNote{
		// Signed by its author, awaiting co-sign: not overdue.
		{
			ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
			NoteType: note.TypeProgressNote, Status: note.StatusPendingCosign,
			SessionDate: timePtr(now.AddDate(0, 0, -10)),
			SignedDate:  timePtr(now.AddDate(0, 0, -9)),
		},
		// Created directly in PENDING_COSIGN and never signed: overdue.
		{
			ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
			NoteType: note.TypeProgressNote, Status: note.StatusPendingCosign,
			SessionDate: timePtr(now.AddDate(0, 0, -10)),
		},
		{
			ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
			NoteType: note.TypeProgressNote, Status: note.StatusDraft,
			SessionDate: timePtr(now.AddDate(0, 0, -10)),
		},
		{
			ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
			NoteType: note.TypeProgressNote, Status: note.StatusLocked,
		},
		{
			ID: uuid.New(), ClientID: clientID, ClinicianID: clinicianID,
			AppointmentID: &documentedAppt.ID,
			NoteType:      note.TypeProgressNote, Status: note.StatusSigned,
		},
	}}
	appts := &fakeApptSource{appointments: []*appointment.Appointment{documentedAppt, urgentAppt, overdueAppt}}

	svc := NewService(notes, appts, &fakeUserDirectory{})
	svc.now = func() time.Time { return now }

	d, err := svc.GetDashboard(context.Background(), clinicianID, []string{"CLINICIAN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if d.Stats.AwaitingCosign != 2 {
		t.Errorf("expected 2 awaiting co-sign, got %d", d.Stats.AwaitingCosign)
	}
	// The unsigned pending co-sign note and the stale draft are overdue;
	// the author-signed one awaiting review is not.
	if d.Stats.Overdue != 2 {
		t.Errorf("expected 2 overdue notes, got %d", d.Stats.Overdue)
	}
	if d.Stats.Locked != 1 {
		t.Errorf("expected 1 locked note, got %d", d.Stats.Locked)
	}
	// Draft count includes the overdue draft.
	if d.Stats.Drafts != 1 {
		t.Errorf("expected 1 draft, got %d", d.Stats.Drafts)
	}
	// The documented appointment is excluded from the missing list.
	if d.Stats.MissingNotes != 2 {
		t.Errorf("expected 2 appointments without notes, got %d", d.Stats.MissingNotes)
	}
	// Urgent counts only missing-note appointments past the seven-day
	// mark; overdue notes never inflate it.
	if d.Stats.Urgent != 1 {
		t.Errorf("expected 1 urgent item, got %d", d.Stats.Urgent)
	}

	for _, m := range d.AppointmentsWithoutNotes {
		switch m.Appointment.ID {
		case urgentAppt.ID:
			if !m.IsOverdue || !m.IsUrgent || m.DaysSince != 10 {
				t.Errorf("urgent appointment flags wrong: %+v", m)
			}
		case overdueAppt.ID:
			if !m.IsOverdue || m.IsUrgent || m.DaysSince != 5 {
				t.Errorf("overdue appointment flags wrong: %+v", m)
			}
		default:
			t.Errorf("unexpected appointment in missing list: %s", m.Appointment.ID)
		}
	}
}

func TestGetDashboard_EmptyScope(t *testing.T) {
	svc := NewService(&fakeNoteSource{}, &fakeApptSource{}, &fakeUserDirectory{})

	d, err := svc.GetDashboard(context.Background(), uuid.New(), []string{"CLINICIAN"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// All collections serialize as empty arrays, never null.
	if d.NotesAwaitingCosign == nil || d.OverdueNotes == nil || d.LockedNotes == nil ||
		d.DraftNotes == nil || d.AppointmentsWithoutNotes == nil {
		t.Error("expected empty slices, got nil")
	}
	if d.Stats != (DashboardStats{}) {
		t.Errorf("expected zeroed stats, got %+v", d.Stats)
	}
}

func TestGetDashboard_SupervisorScope(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	supervisorID := uuid.New()
	superviseeID := uuid.New()
	outsiderID := uuid.New()

	users := &fakeUserDirectory{users: []*identity.User{
		{ID: superviseeID, SupervisorID: &supervisorID},
	}}
	notes := &fakeNoteSource{notes: []*note.ClinicalNote{
		{ID: uuid.New(), ClinicianID: superviseeID, Status: note.StatusPendingCosign},
		{ID: uuid.New(), ClinicianID: outsiderID, Status: note.StatusPendingCosign},
	}}

	svc := NewService(notes, &fakeApptSource{}, users)
	svc.now = func() time.Time { return now }

	d, err := svc.GetDashboard(context.Background(), supervisorID, []string{"SUPERVISOR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Stats.AwaitingCosign != 1 {
		t.Errorf("expected the supervisee's note only, got %d", d.Stats.AwaitingCosign)
	}

	// Administrators see both.
	d, err = svc.GetDashboard(context.Background(), uuid.New(), []string{"ADMINISTRATOR"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Stats.AwaitingCosign != 2 {
		t.Errorf("expected the whole queue for administrators, got %d", d.Stats.AwaitingCosign)
	}
}
