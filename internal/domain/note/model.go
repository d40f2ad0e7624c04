package note

import (
	"time"

	"github.com/google/uuid"
)

// Note lifecycle statuses.
const (
	StatusDraft               = "DRAFT"
	StatusPendingCosign       = "PENDING_COSIGN"
	StatusSigned              = "SIGNED"
	StatusCosigned            = "COSIGNED"
	StatusReturnedForRevision = "RETURNED_FOR_REVISION"
	StatusLocked              = "LOCKED"
)

// Note types.
const (
	TypeIntakeAssessment = "Intake Assessment"
	TypeProgressNote     = "Progress Note"
	TypeSOAP             = "SOAP"
	TypeTreatmentPlan    = "Treatment Plan"
	TypeCancellation     = "Cancellation Note"
	TypeConsultation     = "Consultation Note"
	TypeContact          = "Contact Note"
	TypeTermination      = "Termination Note"
	TypeMiscellaneous    = "Miscellaneous Note"
	TypeGroupTherapy     = "Group Therapy Note"
)

var validNoteTypes = map[string]bool{
	TypeIntakeAssessment: true,
	TypeProgressNote:     true,
	TypeSOAP:             true,
	TypeTreatmentPlan:    true,
	TypeCancellation:     true,
	TypeConsultation:     true,
	TypeContact:          true,
	TypeTermination:      true,
	TypeMiscellaneous:    true,
	TypeGroupTherapy:     true,
}

var validStatuses = map[string]bool{
	StatusDraft:               true,
	StatusPendingCosign:       true,
	StatusSigned:              true,
	StatusCosigned:            true,
	StatusReturnedForRevision: true,
	StatusLocked:              true,
}

// appointmentRequiredTypes must be linked to a valid appointment before
// the note leaves DRAFT.
var appointmentRequiredTypes = map[string]bool{
	TypeIntakeAssessment: true,
	TypeProgressNote:     true,
	TypeSOAP:             true,
	TypeContact:          true,
	TypeGroupTherapy:     true,
}

// intakeRequiredTypes may not be created until the client has a completed
// Intake Assessment.
var intakeRequiredTypes = map[string]bool{
	TypeProgressNote:  true,
	TypeSOAP:          true,
	TypeTreatmentPlan: true,
}

// DiagnosisWritableTypes are the only note types from which diagnosis
// codes may be created or modified.
var DiagnosisWritableTypes = map[string]bool{
	TypeIntakeAssessment: true,
	TypeTreatmentPlan:    true,
}

// validAppointmentStatuses are the appointment states eligible for note
// documentation.
var validAppointmentStatuses = map[string]bool{
	"SCHEDULED":  true,
	"CONFIRMED":  true,
	"IN_SESSION": true,
	"COMPLETED":  true,
	"CHECKED_IN": true,
}

// completedStatuses marks a note as finished documentation.
var completedStatuses = map[string]bool{
	StatusSigned:   true,
	StatusLocked:   true,
	StatusCosigned: true,
}

// immutableStatuses reject any content edit.
var immutableStatuses = map[string]bool{
	StatusSigned:   true,
	StatusCosigned: true,
	StatusLocked:   true,
}

// Documentation deadlines, in days from the session date.
const (
	OverdueDays            = 3
	UrgentDays             = 7
	TreatmentPlanFreshDays = 90
)

// RevisionEntry is one episode of the supervisor return/resubmit loop.
// Entries are appended to the note's revision history and never removed.
type RevisionEntry struct {
	Date            time.Time  `json:"date"`
	ReturnedBy      uuid.UUID  `json:"returnedBy"`
	Comments        string     `json:"comments"`
	RequiredChanges []string   `json:"requiredChanges"`
	ResolvedDate    *time.Time `json:"resolvedDate"`
	ResubmittedDate *time.Time `json:"resubmittedDate"`
}

// ClinicalNote maps to the clinical_note table.
type ClinicalNote struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"clientId"`
	ClinicianID   uuid.UUID  `db:"clinician_id" json:"clinicianId"`
	AppointmentID *uuid.UUID `db:"appointment_id" json:"appointmentId,omitempty"`
	NoteType      string     `db:"note_type" json:"noteType"`
	Status        string     `db:"status" json:"status"`

	SessionDate      *time.Time `db:"session_date" json:"sessionDate,omitempty"`
	SessionStartTime *string    `db:"session_start_time" json:"sessionStartTime,omitempty"`
	SessionEndTime   *string    `db:"session_end_time" json:"sessionEndTime,omitempty"`
	SessionDuration  *int       `db:"session_duration" json:"sessionDuration,omitempty"`

	Subjective *string `db:"subjective" json:"subjective,omitempty"`
	Objective  *string `db:"objective" json:"objective,omitempty"`
	Assessment *string `db:"assessment" json:"assessment,omitempty"`
	Plan       *string `db:"plan" json:"plan,omitempty"`

	SuicidalIdeation      bool    `db:"suicidal_ideation" json:"suicidalIdeation"`
	SuicidalPlan          bool    `db:"suicidal_plan" json:"suicidalPlan"`
	HomicidalIdeation     bool    `db:"homicidal_ideation" json:"homicidalIdeation"`
	SelfHarm              bool    `db:"self_harm" json:"selfHarm"`
	RiskLevel             *string `db:"risk_level" json:"riskLevel,omitempty"`
	RiskAssessmentDetails *string `db:"risk_assessment_details" json:"riskAssessmentDetails,omitempty"`
	InterventionsTaken    *string `db:"interventions_taken" json:"interventionsTaken,omitempty"`

	DiagnosisCodes      []string `db:"diagnosis_codes" json:"diagnosisCodes"`
	InterventionsUsed   []string `db:"interventions_used" json:"interventionsUsed"`
	ProgressTowardGoals *string  `db:"progress_toward_goals" json:"progressTowardGoals,omitempty"`

	NextSessionPlan *string    `db:"next_session_plan" json:"nextSessionPlan,omitempty"`
	NextSessionDate *time.Time `db:"next_session_date" json:"nextSessionDate,omitempty"`

	CPTCode  *string `db:"cpt_code" json:"cptCode,omitempty"`
	Billable bool    `db:"billable" json:"billable"`

	DueDate        *time.Time `db:"due_date" json:"dueDate,omitempty"`
	SignedBy       *uuid.UUID `db:"signed_by" json:"signedBy,omitempty"`
	SignedDate     *time.Time `db:"signed_date" json:"signedDate,omitempty"`
	CosignedBy     *uuid.UUID `db:"cosigned_by" json:"cosignedBy,omitempty"`
	CosignedDate   *time.Time `db:"cosigned_date" json:"cosignedDate,omitempty"`
	RequiresCosign bool       `db:"requires_cosign" json:"requiresCosign"`

	SupervisorComments             *string  `db:"supervisor_comments" json:"supervisorComments,omitempty"`
	CurrentRevisionComments        *string  `db:"current_revision_comments" json:"currentRevisionComments,omitempty"`
	CurrentRevisionRequiredChanges []string `db:"current_revision_required_changes" json:"currentRevisionRequiredChanges,omitempty"`

	RevisionHistory []RevisionEntry `db:"revision_history" json:"revisionHistory"`
	RevisionCount   int             `db:"revision_count" json:"revisionCount"`

	DaysToComplete  *int       `db:"days_to_complete" json:"daysToComplete,omitempty"`
	CompletedOnTime *bool      `db:"completed_on_time" json:"completedOnTime,omitempty"`
	LastModifiedBy  *uuid.UUID `db:"last_modified_by" json:"lastModifiedBy,omitempty"`
	IsLocked        bool       `db:"is_locked" json:"isLocked"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsCompleted reports whether the note counts as finished documentation.
func (n *ClinicalNote) IsCompleted() bool {
	return completedStatuses[n.Status]
}

// IsEditable reports whether content fields may still change.
func (n *ClinicalNote) IsEditable() bool {
	return !immutableStatuses[n.Status] && !n.IsLocked
}

// Stats summarizes note counts for a clinician scope.
type Stats struct {
	Total         int `json:"total"`
	Draft         int `json:"draft"`
	Signed        int `json:"signed"`
	PendingCosign int `json:"pendingCosign"`
	Cosigned      int `json:"cosigned"`
	Locked        int `json:"locked"`
	Overdue       int `json:"overdue"`
}

// TreatmentPlanStatus is the read-side freshness computation for a
// client's treatment plan.
type TreatmentPlanStatus struct {
	NeedsUpdate       bool          `json:"needsUpdate"`
	DaysOverdue       *int          `json:"daysOverdue"`
	LastTreatmentPlan *ClinicalNote `json:"lastTreatmentPlan,omitempty"`
}

// Filters narrows note list queries.
type Filters struct {
	ClientID  *uuid.UUID
	Status    string
	NoteType  string
	StartDate *time.Time
	EndDate   *time.Time
}
