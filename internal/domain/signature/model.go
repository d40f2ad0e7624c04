package signature

import (
	"time"

	"github.com/google/uuid"
)

// Signature types recorded on an event.
const (
	TypeAuthor    = "AUTHOR"
	TypeCosign    = "COSIGN"
	TypeAmendment = "AMENDMENT"
)

// Authentication methods accepted for a signing act.
const (
	AuthMethodPIN       = "PIN"
	AuthMethodPassword  = "PASSWORD"
	AuthMethodBiometric = "BIOMETRIC"
	AuthMethodMFA       = "MFA"
)

// Attestation roles. The resolver picks one from the signer's context.
const (
	RoleClinician  = "CLINICIAN"
	RoleSupervisor = "SUPERVISOR"
	RoleAdmin      = "ADMIN"
)

// Event maps to the signature_event table. Events are append-only: the
// only permitted mutation is revocation, which flips isValid and stamps
// the revocation fields but never deletes the row.
type Event struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	NoteID        uuid.UUID  `db:"note_id" json:"noteId"`
	UserID        uuid.UUID  `db:"user_id" json:"userId"`
	SignatureType string     `db:"signature_type" json:"signatureType"`
	AuthMethod    string     `db:"auth_method" json:"authMethod"`
	AttestationID *uuid.UUID `db:"attestation_id" json:"attestationId,omitempty"`
	IPAddress     *string    `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent     *string    `db:"user_agent" json:"userAgent,omitempty"`
	IsValid       bool       `db:"is_valid" json:"isValid"`
	RevokedAt     *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
	RevokedBy     *uuid.UUID `db:"revoked_by" json:"revokedBy,omitempty"`
	RevokedReason *string    `db:"revoked_reason" json:"revokedReason,omitempty"`
	SignedAt      time.Time  `db:"signed_at" json:"signedAt"`
}

// Attestation maps to the signature_attestation table: versioned legal
// text keyed by (role, noteType-or-ALL, jurisdiction-or-US).
type Attestation struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Role            string    `db:"role" json:"role"`
	NoteType        string    `db:"note_type" json:"noteType"`
	Jurisdiction    string    `db:"jurisdiction" json:"jurisdiction"`
	AttestationText string    `db:"attestation_text" json:"attestationText"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	EffectiveDate   time.Time `db:"effective_date" json:"effectiveDate"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}
