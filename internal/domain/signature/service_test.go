package signature

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mentalspace/ehr/internal/domain/identity"
	"github.com/mentalspace/ehr/internal/platform/apperror"
)

type fakeUserStore struct {
	users map[uuid.UUID]*identity.User
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return u, nil
}

func (f *fakeUserStore) UpdateSignaturePin(_ context.Context, id uuid.UUID, pinHash string) error {
	f.users[id].SignaturePinHash = &pinHash
	return nil
}

func (f *fakeUserStore) UpdateSignaturePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	f.users[id].SignaturePasswordHash = &passwordHash
	return nil
}

type fakeEventRepo struct {
	events map[uuid.UUID]*Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*Event)}
}

func (f *fakeEventRepo) Create(_ context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.events[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return e, nil
}

func (f *fakeEventRepo) ListByNote(_ context.Context, noteID uuid.UUID) ([]*Event, error) {
	var out []*Event
	for _, e := range f.events {
		if e.NoteID == noteID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) Revoke(_ context.Context, e *Event) error {
	f.events[e.ID] = e
	return nil
}

type fakeAttestationRepo struct {
	attestations map[string]*Attestation
}

func newFakeAttestationRepo() *fakeAttestationRepo {
	return &fakeAttestationRepo{attestations: make(map[string]*Attestation)}
}

func attKey(role, noteType, jurisdiction string) string {
	return role + "|" + noteType + "|" + jurisdiction
}

func (f *fakeAttestationRepo) Create(_ context.Context, a *Attestation) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.attestations[attKey(a.Role, a.NoteType, a.Jurisdiction)] = a
	return nil
}

func (f *fakeAttestationRepo) FindActive(_ context.Context, role, noteType, jurisdiction string) (*Attestation, error) {
	a, ok := f.attestations[attKey(role, noteType, jurisdiction)]
	if !ok || !a.IsActive {
		return nil, nil
	}
	return a, nil
}

func mustHash(t *testing.T, secret string) *string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcryptCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	s := string(h)
	return &s
}

func newTestService(users *fakeUserStore) (*Service, *fakeEventRepo, *fakeAttestationRepo) {
	events := newFakeEventRepo()
	attestations := newFakeAttestationRepo()
	return NewService(users, events, attestations, "GA"), events, attestations
}

func wantBadRequest(t *testing.T, err error, message string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if apperror.MessageOf(err) != message {
		t.Errorf("expected message %q, got %q", message, apperror.MessageOf(err))
	}
}

func TestSetSignaturePin(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID},
	}}
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	for _, pin := range []string{"12", "1234567", "abcd", ""} {
		err := svc.SetSignaturePin(ctx, userID, pin)
		wantBadRequest(t, err, "PIN must be 4-6 digits")
	}

	if err := svc.SetSignaturePin(ctx, userID, "4321"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hash := users.users[userID].SignaturePinHash
	if hash == nil {
		t.Fatal("expected PIN hash to be stored")
	}
	if bcrypt.CompareHashAndPassword([]byte(*hash), []byte("4321")) != nil {
		t.Error("stored hash does not match the PIN")
	}
}

func TestSetSignaturePassword_Policy(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID},
	}}
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	tests := []struct {
		password string
		message  string
	}{
		{"Short1!", "Password must be at least 12 characters"},
		{"alllowercase1!x", "Password must contain at least one uppercase letter"},
		{"ALLUPPERCASE1!X", "Password must contain at least one lowercase letter"},
		{"NoDigitsHere!!aa", "Password must contain at least one number"},
		{"NoSpecials1234aa", "Password must contain at least one special character"},
	}
	for _, tt := range tests {
		err := svc.SetSignaturePassword(ctx, userID, tt.password)
		wantBadRequest(t, err, tt.message)
	}

	if err := svc.SetSignaturePassword(ctx, userID, "Str0ngSigning!Pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.users[userID].SignaturePasswordHash == nil {
		t.Fatal("expected signature password hash to be stored")
	}
}

func TestVerifySignatureAuth_CredentialSelection(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID},
	}}
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	if _, err := svc.VerifySignatureAuth(ctx, userID, "", ""); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request for neither credential, got %v", err)
	}
	if _, err := svc.VerifySignatureAuth(ctx, userID, "1234", "secret"); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request for both credentials, got %v", err)
	}
}

func TestVerifySignatureAuth_Pin(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID, SignaturePinHash: mustHash(t, "1234")},
	}}
	svc, _, _ := newTestService(users)
	ctx := context.Background()

	ok, err := svc.VerifySignatureAuth(ctx, userID, "1234", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected correct PIN to verify")
	}

	ok, err = svc.VerifySignatureAuth(ctx, userID, "9999", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected wrong PIN to fail verification")
	}
}

func TestVerifySignatureAuth_PinNotConfigured(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID},
	}}
	svc, _, _ := newTestService(users)

	_, err := svc.VerifySignatureAuth(context.Background(), userID, "1234", "")
	wantBadRequest(t, err, "Signature PIN not configured for this user")
}

func TestVerifySignatureAuth_PasswordFallback(t *testing.T) {
	ctx := context.Background()

	// Dedicated signature password wins over the login password.
	withBoth := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		withBoth: {
			ID:                    withBoth,
			PasswordHash:          mustHash(t, "login-password"),
			SignaturePasswordHash: mustHash(t, "signing-password"),
		},
	}}
	svc, _, _ := newTestService(users)

	ok, err := svc.VerifySignatureAuth(ctx, withBoth, "", "signing-password")
	if err != nil || !ok {
		t.Errorf("expected signature password to verify, got ok=%v err=%v", ok, err)
	}
	ok, _ = svc.VerifySignatureAuth(ctx, withBoth, "", "login-password")
	if ok {
		t.Error("login password should not verify when a signature password is set")
	}

	// Without a dedicated signature password the login password applies.
	loginOnly := uuid.New()
	users.users[loginOnly] = &identity.User{
		ID:           loginOnly,
		PasswordHash: mustHash(t, "login-password"),
	}
	ok, err = svc.VerifySignatureAuth(ctx, loginOnly, "", "login-password")
	if err != nil || !ok {
		t.Errorf("expected login password fallback to verify, got ok=%v err=%v", ok, err)
	}

	// No credential hashes at all.
	bare := uuid.New()
	users.users[bare] = &identity.User{ID: bare}
	_, err = svc.VerifySignatureAuth(ctx, bare, "", "anything")
	wantBadRequest(t, err, "No signature credentials configured for this user")
}

func TestVerifySignatureAuth_UnknownUser(t *testing.T) {
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{}}
	svc, _, _ := newTestService(users)

	ok, err := svc.VerifySignatureAuth(context.Background(), uuid.New(), "1234", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected unknown user to fail verification")
	}
}

func TestGetApplicableAttestation_FallbackChain(t *testing.T) {
	userID := uuid.New()
	state := "NY"
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID, Roles: []string{"CLINICIAN"}, LicenseState: &state},
	}}
	svc, _, attestations := newTestService(users)
	ctx := context.Background()

	exact := &Attestation{Role: RoleClinician, NoteType: "Progress Note", Jurisdiction: "NY", AttestationText: "exact", IsActive: true}
	stateWide := &Attestation{Role: RoleClinician, NoteType: "ALL", Jurisdiction: "NY", AttestationText: "state", IsActive: true}
	federal := &Attestation{Role: RoleClinician, NoteType: "ALL", Jurisdiction: "US", AttestationText: "federal", IsActive: true}

	// Only the federal default exists.
	attestations.Create(ctx, federal)
	a, err := svc.GetApplicableAttestation(ctx, userID, "Progress Note", TypeAuthor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AttestationText != "federal" {
		t.Errorf("expected federal fallback, got %q", a.AttestationText)
	}

	// A state-wide text outranks the federal default.
	attestations.Create(ctx, stateWide)
	a, _ = svc.GetApplicableAttestation(ctx, userID, "Progress Note", TypeAuthor)
	if a.AttestationText != "state" {
		t.Errorf("expected state-wide text, got %q", a.AttestationText)
	}

	// An exact note-type match outranks everything.
	attestations.Create(ctx, exact)
	a, _ = svc.GetApplicableAttestation(ctx, userID, "Progress Note", TypeAuthor)
	if a.AttestationText != "exact" {
		t.Errorf("expected exact match, got %q", a.AttestationText)
	}
}

func TestGetApplicableAttestation_RoleResolution(t *testing.T) {
	ctx := context.Background()

	clinicianID := uuid.New()
	adminID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		clinicianID: {ID: clinicianID, Roles: []string{"CLINICIAN"}},
		adminID:     {ID: adminID, Roles: []string{"ADMINISTRATOR"}},
	}}
	svc, _, attestations := newTestService(users)

	attestations.Create(ctx, &Attestation{Role: RoleClinician, NoteType: "ALL", Jurisdiction: "US", AttestationText: "clinician", IsActive: true})
	attestations.Create(ctx, &Attestation{Role: RoleSupervisor, NoteType: "ALL", Jurisdiction: "US", AttestationText: "supervisor", IsActive: true})
	attestations.Create(ctx, &Attestation{Role: RoleAdmin, NoteType: "ALL", Jurisdiction: "US", AttestationText: "admin", IsActive: true})

	// No license state: the default jurisdiction (GA) finds nothing, the
	// federal tier resolves.
	a, err := svc.GetApplicableAttestation(ctx, clinicianID, "SOAP", TypeAuthor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AttestationText != "clinician" {
		t.Errorf("expected clinician text, got %q", a.AttestationText)
	}

	// A co-sign resolves the supervisor attestation regardless of roles.
	a, _ = svc.GetApplicableAttestation(ctx, clinicianID, "SOAP", TypeCosign)
	if a.AttestationText != "supervisor" {
		t.Errorf("expected supervisor text for co-sign, got %q", a.AttestationText)
	}

	// Administrators signing as author get the admin attestation.
	a, _ = svc.GetApplicableAttestation(ctx, adminID, "SOAP", TypeAuthor)
	if a.AttestationText != "admin" {
		t.Errorf("expected admin text, got %q", a.AttestationText)
	}
}

func TestGetApplicableAttestation_NotFound(t *testing.T) {
	userID := uuid.New()
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{
		userID: {ID: userID, Roles: []string{"CLINICIAN"}},
	}}
	svc, _, _ := newTestService(users)

	_, err := svc.GetApplicableAttestation(context.Background(), userID, "SOAP", TypeAuthor)
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordEvent(t *testing.T) {
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{}}
	svc, events, _ := newTestService(users)
	ctx := context.Background()

	err := svc.RecordEvent(ctx, &Event{})
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request for missing ids, got %v", err)
	}

	e := &Event{NoteID: uuid.New(), UserID: uuid.New(), SignatureType: TypeAuthor, AuthMethod: AuthMethodPIN}
	if err := svc.RecordEvent(ctx, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.IsValid {
		t.Error("expected recorded event to be valid")
	}
	if len(events.events) != 1 {
		t.Errorf("expected 1 stored event, got %d", len(events.events))
	}
}

func TestRevokeSignature(t *testing.T) {
	users := &fakeUserStore{users: map[uuid.UUID]*identity.User{}}
	svc, events, _ := newTestService(users)
	ctx := context.Background()

	e := &Event{NoteID: uuid.New(), UserID: uuid.New(), SignatureType: TypeAuthor, AuthMethod: AuthMethodPIN}
	if err := svc.RecordEvent(ctx, e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	revoker := uuid.New()

	if _, err := svc.RevokeSignature(ctx, e.ID, revoker, ""); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request for empty reason, got %v", err)
	}
	if _, err := svc.RevokeSignature(ctx, uuid.New(), revoker, "signed in error"); !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found for unknown event, got %v", err)
	}

	revoked, err := svc.RevokeSignature(ctx, e.ID, revoker, "signed in error")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if revoked.IsValid {
		t.Error("expected revoked event to be invalid")
	}
	if revoked.RevokedAt == nil || revoked.RevokedBy == nil || *revoked.RevokedBy != revoker {
		t.Error("expected revocation fields to be stamped")
	}
	if revoked.RevokedReason == nil || *revoked.RevokedReason != "signed in error" {
		t.Error("expected revocation reason to be stored")
	}

	// The row survives revocation; a second revoke is rejected.
	if len(events.events) != 1 {
		t.Errorf("expected event row to be kept, got %d rows", len(events.events))
	}
	if _, err := svc.RevokeSignature(ctx, e.ID, revoker, "again"); !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request for double revoke, got %v", err)
	}
}
