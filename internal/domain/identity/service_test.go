package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mentalspace/ehr/internal/platform/apperror"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.New("no rows")
}

func (f *fakeUserRepo) Update(_ context.Context, u *User) error {
	if _, ok := f.users[u.ID]; !ok {
		return errors.New("no rows")
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) UpdateSignaturePin(_ context.Context, id uuid.UUID, pinHash string) error {
	u, ok := f.users[id]
	if !ok {
		return errors.New("no rows")
	}
	u.SignaturePinHash = &pinHash
	return nil
}

func (f *fakeUserRepo) UpdateSignaturePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	u, ok := f.users[id]
	if !ok {
		return errors.New("no rows")
	}
	u.SignaturePasswordHash = &passwordHash
	return nil
}

func (f *fakeUserRepo) ListSupervisees(_ context.Context, supervisorID uuid.UUID) ([]*User, error) {
	var out []*User
	for _, u := range f.users {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(f.users), nil
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewService(newFakeUserRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		user *User
	}{
		{"missing email", &User{FirstName: "Jordan", LastName: "Reyes"}},
		{"missing first name", &User{Email: "j.reyes@clinic.example", LastName: "Reyes"}},
		{"missing last name", &User{Email: "j.reyes@clinic.example", FirstName: "Jordan"}},
		{"invalid role", &User{Email: "j.reyes@clinic.example", FirstName: "Jordan", LastName: "Reyes", Roles: []string{"JANITOR"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateUser(ctx, tt.user)
			if !apperror.IsKind(err, apperror.KindBadRequest) {
				t.Errorf("expected bad request, got %v", err)
			}
		})
	}
}

func TestCreateUser_Defaults(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	u := &User{Email: "j.reyes@clinic.example", FirstName: "Jordan", LastName: "Reyes"}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(u.Roles) != 1 || u.Roles[0] != "CLINICIAN" {
		t.Errorf("expected default CLINICIAN role, got %v", u.Roles)
	}
	if !u.IsActive {
		t.Error("expected new users to be active")
	}
	if _, ok := repo.users[u.ID]; !ok {
		t.Error("expected user to be persisted")
	}
}

func TestCreateUser_AllRolesAccepted(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	u := &User{
		Email:     "m.okafor@clinic.example",
		FirstName: "Mina",
		LastName:  "Okafor",
		Roles:     []string{"CLINICIAN", "SUPERVISOR", "ADMINISTRATOR", "BILLER", "SCHEDULER"},
	}
	if err := svc.CreateUser(context.Background(), u); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGetUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u := &User{Email: "j.reyes@clinic.example", FirstName: "Jordan", LastName: "Reyes"}
	if err := svc.CreateUser(ctx, u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != u.Email {
		t.Errorf("expected %s, got %s", u.Email, got.Email)
	}

	_, err = svc.GetUser(ctx, uuid.New())
	if !apperror.IsKind(err, apperror.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if msg := apperror.MessageOf(err); msg != "User not found" {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestUpdateUser_RejectsInvalidRole(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)
	ctx := context.Background()

	u := &User{Email: "j.reyes@clinic.example", FirstName: "Jordan", LastName: "Reyes"}
	if err := svc.CreateUser(ctx, u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u.Roles = []string{"SUPERUSER"}
	err := svc.UpdateUser(ctx, u)
	if !apperror.IsKind(err, apperror.KindBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}

	u.Roles = []string{"SUPERVISOR"}
	if err := svc.UpdateUser(ctx, u); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := repo.users[u.ID].Roles[0]; got != "SUPERVISOR" {
		t.Errorf("expected role update to persist, got %s", got)
	}
}

func TestListSupervisees(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)
	ctx := context.Background()

	supervisor := &User{Email: "m.okafor@clinic.example", FirstName: "Mina", LastName: "Okafor", Roles: []string{"SUPERVISOR"}}
	if err := svc.CreateUser(ctx, supervisor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	supervisee := &User{
		Email: "j.reyes@clinic.example", FirstName: "Jordan", LastName: "Reyes",
		SupervisorID: &supervisor.ID, RequiresCosign: true,
	}
	if err := svc.CreateUser(ctx, supervisee); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unrelated := &User{Email: "p.varga@clinic.example", FirstName: "Petra", LastName: "Varga"}
	if err := svc.CreateUser(ctx, unrelated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.ListSupervisees(ctx, supervisor.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != supervisee.ID {
		t.Errorf("expected the one supervisee, got %d", len(got))
	}
}
