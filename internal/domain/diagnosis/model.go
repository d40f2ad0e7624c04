package diagnosis

import (
	"time"

	"github.com/google/uuid"
)

// Diagnosis statuses.
const (
	StatusActive      = "ACTIVE"
	StatusResolved    = "RESOLVED"
	StatusRuledOut    = "RULED_OUT"
	StatusProvisional = "PROVISIONAL"
)

// History change types.
const (
	ChangeCreated      = "CREATED"
	ChangeModified     = "MODIFIED"
	ChangeStatusChange = "STATUS_CHANGE"
	ChangeDeleted      = "DELETED"
)

// Diagnosis maps to the diagnosis table. Rows may only be written from
// Intake Assessments and Treatment Plans; every write is mirrored into
// the diagnosis_history table.
type Diagnosis struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	ClientID      uuid.UUID  `db:"client_id" json:"clientId"`
	ICDCode       string     `db:"icd_code" json:"icdCode"`
	Description   string     `db:"description" json:"description"`
	DiagnosisType *string    `db:"diagnosis_type" json:"diagnosisType,omitempty"`
	Severity      *string    `db:"severity" json:"severity,omitempty"`
	Status        string     `db:"status" json:"status"`
	DiagnosisDate *time.Time `db:"diagnosis_date" json:"diagnosisDate,omitempty"`
	CreatedInNote *uuid.UUID `db:"created_in_note" json:"createdInNote,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// HistoryEntry maps to the diagnosis_history table: an append-only audit
// of diagnosis changes with before/after snapshots.
type HistoryEntry struct {
	ID                uuid.UUID              `db:"id" json:"id"`
	DiagnosisID       uuid.UUID              `db:"diagnosis_id" json:"diagnosisId"`
	ChangedBy         uuid.UUID              `db:"changed_by" json:"changedBy"`
	ChangedInNote     uuid.UUID              `db:"changed_in_note" json:"changedInNote"`
	ChangedInNoteType string                 `db:"changed_in_note_type" json:"changedInNoteType"`
	ChangeType        string                 `db:"change_type" json:"changeType"`
	OldValues         map[string]interface{} `db:"old_values" json:"oldValues,omitempty"`
	NewValues         map[string]interface{} `db:"new_values" json:"newValues,omitempty"`
	ChangeReason      *string                `db:"change_reason" json:"changeReason,omitempty"`
	CreatedAt         time.Time              `db:"created_at" json:"createdAt"`
}

// snapshot captures the auditable fields of a diagnosis.
func snapshot(d *Diagnosis) map[string]interface{} {
	return map[string]interface{}{
		"icdCode":       d.ICDCode,
		"description":   d.Description,
		"diagnosisType": d.DiagnosisType,
		"severity":      d.Severity,
		"status":        d.Status,
		"diagnosisDate": d.DiagnosisDate,
	}
}
