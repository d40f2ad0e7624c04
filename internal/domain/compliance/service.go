// Package compliance aggregates documentation-compliance data: notes
// awaiting action, overdue documentation, and completed sessions that
// were never documented.
package compliance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/domain/appointment"
	"github.com/mentalspace/ehr/internal/domain/identity"
	"github.com/mentalspace/ehr/internal/domain/note"
)

// lookbackDays bounds how far back the dashboard scans completed
// appointments for missing documentation.
const lookbackDays = 90

// NoteSource is the slice of the note repository the dashboard needs.
type NoteSource interface {
	ListByStatus(ctx context.Context, statuses []string, clinicianIDs []uuid.UUID) ([]*note.ClinicalNote, error)
	ListUnsignedBefore(ctx context.Context, cutoff time.Time, clinicianIDs []uuid.UUID) ([]*note.ClinicalNote, error)
	AppointmentIDsWithNotes(ctx context.Context, statuses []string) (map[uuid.UUID]bool, error)
	StatsFor(ctx context.Context, clinicianIDs []uuid.UUID, overdueCutoff time.Time) (*note.Stats, error)
}

// AppointmentSource is the slice of the appointment repository the
// dashboard needs.
type AppointmentSource interface {
	ListCompletedSince(ctx context.Context, since time.Time, clinicianIDs []uuid.UUID) ([]*appointment.Appointment, error)
}

// UserDirectory resolves a supervisor's supervisees for scoping.
type UserDirectory interface {
	ListSupervisees(ctx context.Context, supervisorID uuid.UUID) ([]*identity.User, error)
}

// MissingNoteAppointment is a completed session with no signed note.
type MissingNoteAppointment struct {
	Appointment *appointment.Appointment `json:"appointment"`
	DaysSince   int                      `json:"daysSince"`
	IsOverdue   bool                     `json:"isOverdue"`
	IsUrgent    bool                     `json:"isUrgent"`
}

// DashboardStats are the headline counts.
type DashboardStats struct {
	AwaitingCosign int `json:"awaitingCosign"`
	Overdue        int `json:"overdue"`
	Locked         int `json:"locked"`
	Drafts         int `json:"drafts"`
	MissingNotes   int `json:"missingNotes"`
	Urgent         int `json:"urgent"`
}

// Dashboard is the full compliance view for one caller's scope.
type Dashboard struct {
	NotesAwaitingCosign      []*note.ClinicalNote     `json:"notesAwaitingCosign"`
	OverdueNotes             []*note.ClinicalNote     `json:"overdueNotes"`
	LockedNotes              []*note.ClinicalNote     `json:"lockedNotes"`
	DraftNotes               []*note.ClinicalNote     `json:"draftNotes"`
	AppointmentsWithoutNotes []MissingNoteAppointment `json:"appointmentsWithoutNotes"`
	Stats                    DashboardStats           `json:"stats"`
}

type Service struct {
	notes        NoteSource
	appointments AppointmentSource
	users        UserDirectory
	now          func() time.Time
}

func NewService(notes NoteSource, appointments AppointmentSource, users UserDirectory) *Service {
	return &Service{
		notes:        notes,
		appointments: appointments,
		users:        users,
		now:          time.Now,
	}
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// scopeFor mirrors the note service scoping: administrators see the whole
// practice, supervisors see themselves plus their supervisees, everyone
// else sees only their own caseload.
func (s *Service) scopeFor(ctx context.Context, callerID uuid.UUID, roles []string) ([]uuid.UUID, error) {
	if hasRole(roles, "ADMINISTRATOR") {
		return nil, nil
	}
	if hasRole(roles, "SUPERVISOR") {
		supervisees, err := s.users.ListSupervisees(ctx, callerID)
		if err != nil {
			return nil, err
		}
		ids := []uuid.UUID{callerID}
		for _, u := range supervisees {
			ids = append(ids, u.ID)
		}
		return ids, nil
	}
	return []uuid.UUID{callerID}, nil
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// GetDashboard assembles the compliance dashboard for the caller.
func (s *Service) GetDashboard(ctx context.Context, callerID uuid.UUID, roles []string) (*Dashboard, error) {
	scope, err := s.scopeFor(ctx, callerID, roles)
	if err != nil {
		return nil, err
	}
	now := s.now()

	awaiting, err := s.notes.ListByStatus(ctx, []string{note.StatusPendingCosign}, scope)
	if err != nil {
		return nil, err
	}
	overdue, err := s.notes.ListUnsignedBefore(ctx, now.AddDate(0, 0, -note.OverdueDays), scope)
	if err != nil {
		return nil, err
	}
	locked, err := s.notes.ListByStatus(ctx, []string{note.StatusLocked}, scope)
	if err != nil {
		return nil, err
	}
	drafts, err := s.notes.ListByStatus(ctx, []string{note.StatusDraft}, scope)
	if err != nil {
		return nil, err
	}

	appts, err := s.appointments.ListCompletedSince(ctx, now.AddDate(0, 0, -lookbackDays), scope)
	if err != nil {
		return nil, err
	}
	documented, err := s.notes.AppointmentIDsWithNotes(ctx,
		[]string{note.StatusSigned, note.StatusCosigned, note.StatusLocked})
	if err != nil {
		return nil, err
	}

	missing := []MissingNoteAppointment{}
	urgent := 0
	for _, a := range appts {
		if documented[a.ID] {
			continue
		}
		days := daysBetween(a.AppointmentDate, now)
		m := MissingNoteAppointment{
			Appointment: a,
			DaysSince:   days,
			IsOverdue:   days > note.OverdueDays,
			IsUrgent:    days > note.UrgentDays,
		}
		if m.IsUrgent {
			urgent++
		}
		missing = append(missing, m)
	}

	if awaiting == nil {
		awaiting = []*note.ClinicalNote{}
	}
	if overdue == nil {
		overdue = []*note.ClinicalNote{}
	}
	if locked == nil {
		locked = []*note.ClinicalNote{}
	}
	if drafts == nil {
		drafts = []*note.ClinicalNote{}
	}

	return &Dashboard{
		NotesAwaitingCosign:      awaiting,
		OverdueNotes:             overdue,
		LockedNotes:              locked,
		DraftNotes:               drafts,
		AppointmentsWithoutNotes: missing,
		Stats: DashboardStats{
			AwaitingCosign: len(awaiting),
			Overdue:        len(overdue),
			Locked:         len(locked),
			Drafts:         len(drafts),
			MissingNotes:   len(missing),
			Urgent:         urgent,
		},
	}, nil
}
