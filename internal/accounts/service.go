package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatehouse/gatehouse/internal/shared"
)

// CreateParams carries the optional attributes of a new account. The flag
// fields are pointers so callers can distinguish "unset" from an explicit
// false; CreateSuperuser only fills flags the caller left unset.
type CreateParams struct {
	FirstName   string
	LastName    string
	IsActive    *bool
	IsStaff     *bool
	IsSuperuser *bool
}

// Service wraps account management and credential checks.
type Service struct {
	repo   Repository
	grants GrantSource
}

// NewService constructs a Service. grants may be nil, in which case only
// superusers pass permission checks.
func NewService(repo Repository, grants GrantSource) *Service {
	return &Service{repo: repo, grants: grants}
}

// CreateUser validates and normalizes the email, hashes the password, and
// persists a new account. A duplicate normalized email surfaces as
// shared.ErrEmailTaken.
func (s *Service) CreateUser(ctx context.Context, email, password string, params CreateParams) (*User, error) {
	normalized, err := ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password required", shared.ErrValidation)
	}

	user := &User{
		Email:       normalized,
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		IsActive:    boolOr(params.IsActive, true),
		IsStaff:     boolOr(params.IsStaff, false),
		IsSuperuser: boolOr(params.IsSuperuser, false),
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateSuperuser creates an account with staff and superuser enabled,
// unless the caller set those flags explicitly.
func (s *Service) CreateSuperuser(ctx context.Context, email, password string, params CreateParams) (*User, error) {
	if params.IsStaff == nil {
		params.IsStaff = boolPtr(true)
	}
	if params.IsSuperuser == nil {
		params.IsSuperuser = boolPtr(true)
	}
	return s.CreateUser(ctx, email, password, params)
}

// Authenticate validates email/password credentials. Unknown address,
// inactive account, and wrong password all collapse to the same error so
// the response does not reveal which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// ChangePassword re-hashes and stores a new credential for the user.
func (s *Service) ChangePassword(ctx context.Context, user *User, plaintext string) error {
	if plaintext == "" {
		return fmt.Errorf("%w: password required", shared.ErrValidation)
	}
	if err := user.SetPassword(plaintext); err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, user.ID, user.PasswordHash)
}

// GetUser fetches an account by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// ListUsers returns all accounts.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// SetActive flips the account's active flag. actor must be a superuser.
func (s *Service) SetActive(ctx context.Context, actor *User, userID int64, active bool) error {
	return s.updateFlags(ctx, actor, userID, func(u *User) {
		u.IsActive = active
	})
}

// Promote grants staff and superuser status. actor must be a superuser.
func (s *Service) Promote(ctx context.Context, actor *User, userID int64) error {
	return s.updateFlags(ctx, actor, userID, func(u *User) {
		u.IsStaff = true
		u.IsSuperuser = true
	})
}

// ErrForbidden is returned when the acting user lacks the required access.
var ErrForbidden = errors.New("accounts: forbidden")

func (s *Service) updateFlags(ctx context.Context, actor *User, userID int64, mutate func(*User)) error {
	if actor == nil || !actor.HasPerm("accounts.edit_user", s.grants) {
		return ErrForbidden
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	mutate(user)
	return s.repo.UpdateFlags(ctx, user.ID, user.IsActive, user.IsStaff, user.IsSuperuser)
}

// HasPerm answers a permission query for the given user against the
// configured grant source.
func (s *Service) HasPerm(user *User, perm string) bool {
	if user == nil {
		return false
	}
	return user.HasPerm(perm, s.grants)
}

// HasModulePerms answers a module-access query for the given user.
func (s *Service) HasModulePerms(user *User, module string) bool {
	if user == nil {
		return false
	}
	return user.HasModulePerms(module, s.grants)
}

// RegisterSession records session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session audit record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func boolPtr(v bool) *bool {
	return &v
}
