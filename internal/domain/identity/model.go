package identity

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the app_user table. Credential hashes never serialize.
type User struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	FirstName             string     `db:"first_name" json:"firstName"`
	LastName              string     `db:"last_name" json:"lastName"`
	Title                 *string    `db:"title" json:"title,omitempty"`
	Roles                 []string   `db:"roles" json:"roles"`
	SupervisorID          *uuid.UUID `db:"supervisor_id" json:"supervisorId,omitempty"`
	LicenseState          *string    `db:"license_state" json:"licenseState,omitempty"`
	RequiresCosign        bool       `db:"requires_cosign" json:"requiresCosign"`
	PasswordHash          *string    `db:"password_hash" json:"-"`
	SignaturePinHash      *string    `db:"signature_pin_hash" json:"-"`
	SignaturePasswordHash *string    `db:"signature_password_hash" json:"-"`
	IsActive              bool       `db:"is_active" json:"isActive"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
