package accounts

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an authenticatable principal keyed by email address.
type User struct {
	ID           int64
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GrantSource answers fine-grained permission queries for non-superusers.
// Implementations are optional; a nil source denies everything.
type GrantSource interface {
	HasPerm(userID int64, perm string) bool
	HasModulePerms(userID int64, module string) bool
}

// GetID returns the user's primary key.
func (u *User) GetID() int64 {
	return u.ID
}

// IsSuperUser reports whether every permission check passes unconditionally.
func (u *User) IsSuperUser() bool {
	return u.IsSuperuser
}

// FullName joins the optional display names, falling back to the email.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Email
	}
}

// SetPassword replaces the stored credential with the bcrypt hash of
// plaintext. The plaintext itself is never retained.
func (u *User) SetPassword(plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash.
func (u *User) CheckPassword(plaintext string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// HasPerm reports whether the user holds the named permission. Superusers
// pass unconditionally; everyone else defers to the grant source, and a nil
// source denies.
func (u *User) HasPerm(perm string, grants GrantSource) bool {
	if u.IsSuperuser {
		return true
	}
	if grants == nil {
		return false
	}
	return grants.HasPerm(u.ID, perm)
}

// HasModulePerms reports whether the user may access any surface of the
// named module. Same superuser short-circuit as HasPerm.
func (u *User) HasModulePerms(module string, grants GrantSource) bool {
	if u.IsSuperuser {
		return true
	}
	if grants == nil {
		return false
	}
	return grants.HasModulePerms(u.ID, module)
}
