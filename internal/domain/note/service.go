package note

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/domain/identity"
	"github.com/mentalspace/ehr/internal/domain/signature"
	"github.com/mentalspace/ehr/internal/platform/apperror"
)

// UserDirectory is the slice of the identity repository the note service
// needs for authorship and supervision checks.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	ListSupervisees(ctx context.Context, supervisorID uuid.UUID) ([]*identity.User, error)
}

// Signer performs credential verification, attestation resolution and
// signature event recording. Satisfied by *signature.Service.
type Signer interface {
	VerifySignatureAuth(ctx context.Context, userID uuid.UUID, pin, password string) (bool, error)
	GetApplicableAttestation(ctx context.Context, userID uuid.UUID, noteType, signatureType string) (*signature.Attestation, error)
	RecordEvent(ctx context.Context, e *signature.Event) error
	GetSignatureEvents(ctx context.Context, noteID uuid.UUID) ([]*signature.Event, error)
}

type txRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	notes      Repository
	users      UserDirectory
	signatures Signer
	rules      *Rules
	tx         txRunner
	now        func() time.Time
}

func NewService(notes Repository, users UserDirectory, signatures Signer, rules *Rules, tx txRunner) *Service {
	return &Service{
		notes:      notes,
		users:      users,
		signatures: signatures,
		rules:      rules,
		tx:         tx,
		now:        time.Now,
	}
}

// requiredContentFields lists the fields that must be present before a
// note of the given type can be signed.
var requiredContentFields = map[string][]string{
	TypeProgressNote:     {"subjective", "objective", "assessment", "plan"},
	TypeSOAP:             {"subjective", "objective", "assessment", "plan"},
	TypeIntakeAssessment: {"assessment", "plan"},
	TypeTreatmentPlan:    {"plan"},
}

func validateNoteContent(n *ClinicalNote) error {
	fields := map[string]*string{
		"subjective": n.Subjective,
		"objective":  n.Objective,
		"assessment": n.Assessment,
		"plan":       n.Plan,
	}
	for _, name := range requiredContentFields[n.NoteType] {
		if v := fields[name]; v == nil || *v == "" {
			return apperror.BadRequest("Note content is incomplete: %s is required for a %s", name, n.NoteType)
		}
	}
	return nil
}

func daysBetween(from, to time.Time) int {
	d := int(to.Sub(from).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// scopeFor resolves which clinicians' notes the caller may see. Nil means
// unrestricted (administrators). Supervisors see their own notes plus
// their supervisees'.
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

// Create validates and persists a new note authored by the caller.
// Notes default to DRAFT; a note created directly in a non-draft state
// must pass the full creation rule chain immediately.
func (s *Service) Create(ctx context.Context, callerID uuid.UUID, n *ClinicalNote) (*ClinicalNote, error) {
	if !validNoteTypes[n.NoteType] {
		return nil, apperror.BadRequest("Invalid note type: %s", n.NoteType)
	}
	if n.Status == "" {
		n.Status = StatusDraft
	}
	if !validStatuses[n.Status] {
		return nil, apperror.BadRequest("Invalid note status: %s", n.Status)
	}
	if n.ClientID == uuid.Nil {
		return nil, apperror.BadRequest("clientId is required")
	}
	n.ClinicianID = callerID

	if len(n.DiagnosisCodes) > 0 && !DiagnosisWritableTypes[n.NoteType] {
		return nil, apperror.BadRequest("Diagnoses are read-only for this note type. Diagnoses can only be modified in Intake Assessments and Treatment Plans.")
	}

	if err := s.rules.ValidateNoteCreation(ctx, n.NoteType, n.ClientID, n.ClinicianID, n.AppointmentID, n.Status); err != nil {
		return nil, err
	}

	if n.AppointmentID != nil {
		existing, err := s.notes.GetByAppointment(ctx, *n.AppointmentID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, apperror.Conflict("A clinical note already exists for this appointment")
		}
	}

	author, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, apperror.NotFound("User not found")
	}
	// The co-sign requirement is snapshotted at creation so a later change
	// to the author's supervision status does not alter in-flight notes.
	n.RequiresCosign = author.RequiresCosign
	n.LastModifiedBy = &callerID

	if err := s.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("Clinical note not found")
	}
	return n, nil
}

// List returns notes visible to the caller, filtered and paginated.
func (s *Service) List(ctx context.Context, callerID uuid.UUID, roles []string, f Filters, limit, offset int) ([]*ClinicalNote, int, error) {
	scope, err := s.scopeFor(ctx, callerID, roles)
	if err != nil {
		return nil, 0, err
	}
	return s.notes.List(ctx, f, scope, limit, offset)
}

// UpdateInput carries a partial content update. Nil fields are left alone.
type UpdateInput struct {
	AppointmentID         *uuid.UUID
	SessionDate           *time.Time
	SessionStartTime      *string
	SessionEndTime        *string
	SessionDuration       *int
	Subjective            *string
	Objective             *string
	Assessment            *string
	Plan                  *string
	SuicidalIdeation      *bool
	SuicidalPlan          *bool
	HomicidalIdeation     *bool
	SelfHarm              *bool
	RiskLevel             *string
	RiskAssessmentDetails *string
	InterventionsTaken    *string
	DiagnosisCodes        []string
	InterventionsUsed     []string
	ProgressTowardGoals   *string
	NextSessionPlan       *string
	NextSessionDate       *time.Time
	CPTCode               *string
	Billable              *bool
}

func applyUpdate(n *ClinicalNote, in UpdateInput) {
	if in.AppointmentID != nil {
		n.AppointmentID = in.AppointmentID
	}
	if in.SessionDate != nil {
		n.SessionDate = in.SessionDate
	}
	if in.SessionStartTime != nil {
		n.SessionStartTime = in.SessionStartTime
	}
	if in.SessionEndTime != nil {
		n.SessionEndTime = in.SessionEndTime
	}
	if in.SessionDuration != nil {
		n.SessionDuration = in.SessionDuration
	}
	if in.Subjective != nil {
		n.Subjective = in.Subjective
	}
	if in.Objective != nil {
		n.Objective = in.Objective
	}
	if in.Assessment != nil {
		n.Assessment = in.Assessment
	}
	if in.Plan != nil {
		n.Plan = in.Plan
	}
	if in.SuicidalIdeation != nil {
		n.SuicidalIdeation = *in.SuicidalIdeation
	}
	if in.SuicidalPlan != nil {
		n.SuicidalPlan = *in.SuicidalPlan
	}
	if in.HomicidalIdeation != nil {
		n.HomicidalIdeation = *in.HomicidalIdeation
	}
	if in.SelfHarm != nil {
		n.SelfHarm = *in.SelfHarm
	}
	if in.RiskLevel != nil {
		n.RiskLevel = in.RiskLevel
	}
	if in.RiskAssessmentDetails != nil {
		n.RiskAssessmentDetails = in.RiskAssessmentDetails
	}
	if in.InterventionsTaken != nil {
		n.InterventionsTaken = in.InterventionsTaken
	}
	if in.DiagnosisCodes != nil {
		n.DiagnosisCodes = in.DiagnosisCodes
	}
	if in.InterventionsUsed != nil {
		n.InterventionsUsed = in.InterventionsUsed
	}
	if in.ProgressTowardGoals != nil {
		n.ProgressTowardGoals = in.ProgressTowardGoals
	}
	if in.NextSessionPlan != nil {
		n.NextSessionPlan = in.NextSessionPlan
	}
	if in.NextSessionDate != nil {
		n.NextSessionDate = in.NextSessionDate
	}
	if in.CPTCode != nil {
		n.CPTCode = in.CPTCode
	}
	if in.Billable != nil {
		n.Billable = *in.Billable
	}
}

// Update edits the content of a note that is still mutable.
func (s *Service) Update(ctx context.Context, callerID uuid.UUID, noteID uuid.UUID, in UpdateInput) (*ClinicalNote, error) {
	var updated *ClinicalNote
	err := s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if !n.IsEditable() {
			return apperror.Forbidden("Cannot edit a note that has been signed or locked")
		}
		caller, err := s.users.GetByID(ctx, callerID)
		if err != nil {
			return apperror.NotFound("User not found")
		}
		if n.ClinicianID != callerID && !caller.HasRole("ADMINISTRATOR") {
			return apperror.Forbidden("Only the note author can edit this note")
		}
		if in.DiagnosisCodes != nil && !DiagnosisWritableTypes[n.NoteType] {
			return apperror.BadRequest("Diagnoses are read-only for this note type. Diagnoses can only be modified in Intake Assessments and Treatment Plans.")
		}

		applyUpdate(n, in)
		n.LastModifiedBy = &callerID
		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		updated = n
		return nil
	})
	return updated, err
}

// Delete removes a draft. Signed documentation is never deleted.
func (s *Service) Delete(ctx context.Context, callerID, noteID uuid.UUID) error {
	return s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if n.Status != StatusDraft {
			return apperror.Forbidden("Only draft notes can be deleted")
		}
		if n.ClinicianID != callerID {
			return apperror.Forbidden("Only the note author can delete this note")
		}
		return s.notes.Delete(ctx, noteID)
	})
}

// SignInput carries a signing request.
type SignInput struct {
	NoteID    uuid.UUID
	UserID    uuid.UUID
	Pin       string
	Password  string
	IPAddress string
	UserAgent string
}

// Sign applies the author's legal signature. Credential verification,
// content completeness and the creation rule chain all gate the
// transition; the note lands in PENDING_COSIGN when the author is under
// supervision and SIGNED otherwise. The status change and the signature
// event commit in one transaction.
func (s *Service) Sign(ctx context.Context, in SignInput) (*ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, in.NoteID)
	if err != nil {
		return nil, apperror.NotFound("Clinical note not found")
	}
	if n.ClinicianID != in.UserID {
		return nil, apperror.Forbidden("Only the note author can sign this note")
	}
	if n.IsCompleted() || n.Status == StatusPendingCosign {
		return nil, apperror.BadRequest("Note is already signed")
	}
	if err := validateNoteContent(n); err != nil {
		return nil, err
	}
	if err := s.rules.ValidateNoteCreation(ctx, n.NoteType, n.ClientID, n.ClinicianID, n.AppointmentID, StatusSigned); err != nil {
		return nil, err
	}

	ok, err := s.signatures.VerifySignatureAuth(ctx, in.UserID, in.Pin, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("Invalid signature credentials")
	}

	att, err := s.signatures.GetApplicableAttestation(ctx, in.UserID, n.NoteType, signature.TypeAuthor)
	if err != nil {
		return nil, err
	}

	observed := n.Status
	var signed *ClinicalNote
	err = s.tx.RunTx(ctx, func(ctx context.Context) error {
		cur, err := s.notes.GetByID(ctx, in.NoteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if cur.Status != observed {
			return apperror.BadRequest("note is no longer in the expected state")
		}

		now := s.now()
		if cur.RequiresCosign {
			cur.Status = StatusPendingCosign
		} else {
			cur.Status = StatusSigned
		}
		cur.SignedBy = &in.UserID
		cur.SignedDate = &now
		// A note with no session date counts as completed same-day.
		days := 0
		if cur.SessionDate != nil {
			days = daysBetween(*cur.SessionDate, now)
		}
		onTime := days <= UrgentDays
		cur.DaysToComplete = &days
		cur.CompletedOnTime = &onTime
		cur.LastModifiedBy = &in.UserID

		if err := s.notes.Update(ctx, cur); err != nil {
			return err
		}
		if err := s.signatures.RecordEvent(ctx, s.buildEvent(cur.ID, in, signature.TypeAuthor, att)); err != nil {
			return err
		}
		signed = cur
		return nil
	})
	return signed, err
}

// CosignInput carries a supervisor co-sign request.
type CosignInput struct {
	NoteID             uuid.UUID
	UserID             uuid.UUID
	Pin                string
	Password           string
	SupervisorComments string
	IPAddress          string
	UserAgent          string
}

// Cosign applies the assigned supervisor's counter-signature to a note
// awaiting review.
func (s *Service) Cosign(ctx context.Context, in CosignInput) (*ClinicalNote, error) {
	n, err := s.notes.GetByID(ctx, in.NoteID)
	if err != nil {
		return nil, apperror.NotFound("Clinical note not found")
	}
	if n.Status != StatusPendingCosign {
		return nil, apperror.BadRequest("Note is not pending co-signature")
	}
	author, err := s.users.GetByID(ctx, n.ClinicianID)
	if err != nil {
		return nil, apperror.NotFound("User not found")
	}
	if author.SupervisorID == nil || *author.SupervisorID != in.UserID {
		return nil, apperror.Forbidden("Only the assigned supervisor can co-sign this note")
	}

	ok, err := s.signatures.VerifySignatureAuth(ctx, in.UserID, in.Pin, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("Invalid signature credentials")
	}

	att, err := s.signatures.GetApplicableAttestation(ctx, in.UserID, n.NoteType, signature.TypeCosign)
	if err != nil {
		return nil, err
	}

	var cosigned *ClinicalNote
	err = s.tx.RunTx(ctx, func(ctx context.Context) error {
		cur, err := s.notes.GetByID(ctx, in.NoteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if cur.Status != StatusPendingCosign {
			return apperror.BadRequest("note is no longer in the expected state")
		}

		now := s.now()
		cur.Status = StatusCosigned
		cur.CosignedBy = &in.UserID
		cur.CosignedDate = &now
		if in.SupervisorComments != "" {
			cur.SupervisorComments = &in.SupervisorComments
		}
		cur.LastModifiedBy = &in.UserID

		if err := s.notes.Update(ctx, cur); err != nil {
			return err
		}
		si := SignInput{NoteID: in.NoteID, UserID: in.UserID, Pin: in.Pin, Password: in.Password, IPAddress: in.IPAddress, UserAgent: in.UserAgent}
		if err := s.signatures.RecordEvent(ctx, s.buildEvent(cur.ID, si, signature.TypeCosign, att)); err != nil {
			return err
		}
		cosigned = cur
		return nil
	})
	return cosigned, err
}

func (s *Service) buildEvent(noteID uuid.UUID, in SignInput, sigType string, att *signature.Attestation) *signature.Event {
	method := signature.AuthMethodPIN
	if in.Pin == "" {
		method = signature.AuthMethodPassword
	}
	e := &signature.Event{
		NoteID:        noteID,
		UserID:        in.UserID,
		SignatureType: sigType,
		AuthMethod:    method,
	}
	if att != nil {
		e.AttestationID = &att.ID
	}
	if in.IPAddress != "" {
		e.IPAddress = &in.IPAddress
	}
	if in.UserAgent != "" {
		e.UserAgent = &in.UserAgent
	}
	return e
}

// ReturnForRevision sends a note awaiting co-sign back to its author with
// actionable feedback. The episode is appended to the note's revision
// history.
func (s *Service) ReturnForRevision(ctx context.Context, callerID, noteID uuid.UUID, comments string, requiredChanges []string) (*ClinicalNote, error) {
	if len(comments) < 10 {
		return nil, apperror.BadRequest("Comments must be at least 10 characters")
	}
	if len(requiredChanges) == 0 {
		return nil, apperror.BadRequest("At least one required change must be specified")
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, apperror.NotFound("User not found")
	}
	if !caller.HasRole("SUPERVISOR") && !caller.HasRole("ADMINISTRATOR") {
		return nil, apperror.Forbidden("Only supervisors can return notes for revision")
	}

	var returned *ClinicalNote
	err = s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if n.Status != StatusPendingCosign {
			return apperror.BadRequest("Only notes pending co-signature can be returned for revision")
		}
		if !caller.HasRole("ADMINISTRATOR") {
			author, err := s.users.GetByID(ctx, n.ClinicianID)
			if err != nil {
				return apperror.NotFound("User not found")
			}
			if author.SupervisorID == nil || *author.SupervisorID != callerID {
				return apperror.Forbidden("Only the assigned supervisor can return this note for revision")
			}
		}

		now := s.now()
		n.RevisionHistory = append(n.RevisionHistory, RevisionEntry{
			Date:            now,
			ReturnedBy:      callerID,
			Comments:        comments,
			RequiredChanges: requiredChanges,
		})
		n.RevisionCount++
		n.Status = StatusReturnedForRevision
		n.CurrentRevisionComments = &comments
		n.CurrentRevisionRequiredChanges = requiredChanges
		n.LastModifiedBy = &callerID

		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		returned = n
		return nil
	})
	return returned, err
}

// Resubmit puts a revised note back in the supervisor's queue. The open
// revision episode is stamped and the working feedback fields cleared;
// the history entry itself is preserved.
func (s *Service) Resubmit(ctx context.Context, callerID, noteID uuid.UUID) (*ClinicalNote, error) {
	var resubmitted *ClinicalNote
	err := s.tx.RunTx(ctx, func(ctx context.Context) error {
		n, err := s.notes.GetByID(ctx, noteID)
		if err != nil {
			return apperror.NotFound("Clinical note not found")
		}
		if n.ClinicianID != callerID {
			return apperror.Forbidden("Only the note author can resubmit this note")
		}
		if n.Status != StatusReturnedForRevision {
			return apperror.BadRequest("Note is not returned for revision")
		}

		now := s.now()
		if len(n.RevisionHistory) > 0 {
			last := &n.RevisionHistory[len(n.RevisionHistory)-1]
			if last.ResubmittedDate == nil {
				last.ResubmittedDate = &now
			}
		}
		n.Status = StatusPendingCosign
		n.CurrentRevisionComments = nil
		n.CurrentRevisionRequiredChanges = nil
		n.LastModifiedBy = &callerID

		if err := s.notes.Update(ctx, n); err != nil {
			return err
		}
		resubmitted = n
		return nil
	})
	return resubmitted, err
}

// TreatmentPlanStatus reports whether a client's treatment plan is stale.
// A client with no completed plan always needs one; a completed plan goes
// stale ninety days after signing.
func (s *Service) TreatmentPlanStatus(ctx context.Context, clientID uuid.UUID) (*TreatmentPlanStatus, error) {
	plan, err := s.notes.LatestCompletedTreatmentPlan(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return &TreatmentPlanStatus{NeedsUpdate: true}, nil
	}

	signedAt := plan.CreatedAt
	if plan.SignedDate != nil {
		signedAt = *plan.SignedDate
	}
	age := daysBetween(signedAt, s.now())
	st := &TreatmentPlanStatus{
		NeedsUpdate:       age > TreatmentPlanFreshDays,
		LastTreatmentPlan: plan,
	}
	if age > TreatmentPlanFreshDays {
		overdue := age - TreatmentPlanFreshDays
		st.DaysOverdue = &overdue
	}
	return st, nil
}

// GetStats aggregates note counts for the caller's scope.
func (s *Service) GetStats(ctx context.Context, callerID uuid.UUID, roles []string) (*Stats, error) {
	scope, err := s.scopeFor(ctx, callerID, roles)
	if err != nil {
		return nil, err
	}
	cutoff := s.now().AddDate(0, 0, -OverdueDays)
	return s.notes.StatsFor(ctx, scope, cutoff)
}

// ListForCosigning returns the notes awaiting the caller's co-signature.
// Administrators see the whole queue.
func (s *Service) ListForCosigning(ctx context.Context, callerID uuid.UUID, roles []string) ([]*ClinicalNote, error) {
	var scope []uuid.UUID
	if !hasRole(roles, "ADMINISTRATOR") {
		supervisees, err := s.users.ListSupervisees(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if len(supervisees) == 0 {
			return []*ClinicalNote{}, nil
		}
		for _, u := range supervisees {
			scope = append(scope, u.ID)
		}
	}
	notes, err := s.notes.ListByStatus(ctx, []string{StatusPendingCosign}, scope)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*ClinicalNote{}
	}
	return notes, nil
}

// GetSignatureEvents exposes a note's signature audit trail.
func (s *Service) GetSignatureEvents(ctx context.Context, noteID uuid.UUID) ([]*signature.Event, error) {
	if _, err := s.notes.GetByID(ctx, noteID); err != nil {
		return nil, apperror.NotFound("Clinical note not found")
	}
	return s.signatures.GetSignatureEvents(ctx, noteID)
}
