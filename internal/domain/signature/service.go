package signature

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mentalspace/ehr/internal/domain/identity"
	"github.com/mentalspace/ehr/internal/platform/apperror"
)

// bcryptCost matches the cost the rest of the platform uses for
// credential hashes.
const bcryptCost = 10

var (
	pinPattern       = regexp.MustCompile(`^\d{4,6}$`)
	upperPattern     = regexp.MustCompile(`[A-Z]`)
	lowerPattern     = regexp.MustCompile(`[a-z]`)
	digitPattern     = regexp.MustCompile(`[0-9]`)
	specialPattern   = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
	minPasswordChars = 12
)

// UserStore is the slice of the identity repository the signature service
// needs: credential lookup and hash updates.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	UpdateSignaturePin(ctx context.Context, id uuid.UUID, pinHash string) error
	UpdateSignaturePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type Service struct {
	users        UserStore
	events       EventRepository
	attestations AttestationRepository
	defaultState string
}

func NewService(users UserStore, events EventRepository, attestations AttestationRepository, defaultState string) *Service {
	if defaultState == "" {
		defaultState = "GA"
	}
	return &Service{
		users:        users,
		events:       events,
		attestations: attestations,
		defaultState: defaultState,
	}
}

// GetApplicableAttestation resolves the legal attestation text that must
// accompany a signature. The attestation role is SUPERVISOR for co-signs,
// ADMIN for administrators, CLINICIAN otherwise; the jurisdiction comes
// from the signer's license state. Lookup falls back from the exact
// (role, noteType, jurisdiction) key to noteType=ALL, then to the federal
// default (jurisdiction=US, noteType=ALL). The fallback order is a legal
// contract: the text shown to the signer depends on which tier resolves.
func (s *Service) GetApplicableAttestation(ctx context.Context, userID uuid.UUID, noteType, signatureType string) (*Attestation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NotFound("User not found")
	}

	role := RoleClinician
	if signatureType == TypeCosign {
		role = RoleSupervisor
	} else if user.HasRole("ADMINISTRATOR") {
		role = RoleAdmin
	}

	jurisdiction := s.defaultState
	if user.LicenseState != nil && *user.LicenseState != "" {
		jurisdiction = *user.LicenseState
	}

	lookups := []struct {
		noteType     string
		jurisdiction string
	}{
		{noteType, jurisdiction},
		{"ALL", jurisdiction},
		{"ALL", "US"},
	}
	for _, l := range lookups {
		a, err := s.attestations.FindActive(ctx, role, l.noteType, l.jurisdiction)
		if err != nil {
			return nil, err
		}
		if a != nil {
			return a, nil
		}
	}

	return nil, apperror.NotFound("No applicable attestation found for %s signing %s", role, noteType)
}

// VerifySignatureAuth checks a PIN or password against the user's stored
// credential hashes. A PIN requires a configured signature PIN. A password
// prefers the dedicated signature password, falling back to the login
// password. Returns (false, nil) only when the user record itself cannot
// be found; credential mismatches return false with no error, and
// misconfiguration (no PIN set, neither or both credentials supplied)
// returns an error.
func (s *Service) VerifySignatureAuth(ctx context.Context, userID uuid.UUID, pin, password string) (bool, error) {
	if pin == "" && password == "" {
		return false, apperror.BadRequest("a PIN or password is required to sign")
	}
	if pin != "" && password != "" {
		return false, apperror.BadRequest("supply a PIN or a password, not both")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, nil
	}

	if pin != "" {
		if user.SignaturePinHash == nil {
			return false, apperror.BadRequest("Signature PIN not configured for this user")
		}
		return bcrypt.CompareHashAndPassword([]byte(*user.SignaturePinHash), []byte(pin)) == nil, nil
	}

	hash := user.SignaturePasswordHash
	if hash == nil {
		hash = user.PasswordHash
	}
	if hash == nil {
		return false, apperror.BadRequest("No signature credentials configured for this user")
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil, nil
}

// SetSignaturePin stores a salted hash of the user's signing PIN.
func (s *Service) SetSignaturePin(ctx context.Context, userID uuid.UUID, pin string) error {
	if !pinPattern.MatchString(pin) {
		return apperror.BadRequest("PIN must be 4-6 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	return s.users.UpdateSignaturePin(ctx, userID, string(hash))
}

// SetSignaturePassword stores a salted hash of the user's dedicated
// signature password. Each policy violation reports its own message so
// the user knows exactly what to fix.
func (s *Service) SetSignaturePassword(ctx context.Context, userID uuid.UUID, password string) error {
	if len(password) < minPasswordChars {
		return apperror.BadRequest("Password must be at least 12 characters")
	}
	if !upperPattern.MatchString(password) {
		return apperror.BadRequest("Password must contain at least one uppercase letter")
	}
	if !lowerPattern.MatchString(password) {
		return apperror.BadRequest("Password must contain at least one lowercase letter")
	}
	if !digitPattern.MatchString(password) {
		return apperror.BadRequest("Password must contain at least one number")
	}
	if !specialPattern.MatchString(password) {
		return apperror.BadRequest("Password must contain at least one special character")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return apperror.Internal(err)
	}
	return s.users.UpdateSignaturePassword(ctx, userID, string(hash))
}

// RecordEvent appends a signature event. Called by the note lifecycle
// inside the same transaction as the note status change.
func (s *Service) RecordEvent(ctx context.Context, e *Event) error {
	if e.NoteID == uuid.Nil || e.UserID == uuid.Nil {
		return apperror.BadRequest("noteId and userId are required")
	}
	e.IsValid = true
	return s.events.Create(ctx, e)
}

// GetSignatureEvents returns all signing acts for a note, newest first,
// including revoked ones.
func (s *Service) GetSignatureEvents(ctx context.Context, noteID uuid.UUID) ([]*Event, error) {
	return s.events.ListByNote(ctx, noteID)
}

// RevokeSignature invalidates a signature event. The event row is kept:
// revocation is an annotation, not a deletion.
func (s *Service) RevokeSignature(ctx context.Context, eventID, revokedBy uuid.UUID, reason string) (*Event, error) {
	if reason == "" {
		return nil, apperror.BadRequest("a revocation reason is required")
	}
	e, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperror.NotFound("Signature event not found")
	}
	if !e.IsValid {
		return nil, apperror.BadRequest("signature is already revoked")
	}

	now := time.Now()
	e.IsValid = false
	e.RevokedAt = &now
	e.RevokedBy = &revokedBy
	e.RevokedReason = &reason
	if err := s.events.Revoke(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
