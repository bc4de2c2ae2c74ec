package shared

import "errors"

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a missing or malformed field.
	ErrValidation = errors.New("validation failed")
	// ErrEmailTaken indicates a uniqueness conflict on the email column.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when no CSRF token accompanies a mutation.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the supplied token does not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to text safe to render in a page.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return "That email address is already registered."
	case errors.Is(err, ErrValidation):
		return "Please correct the highlighted fields."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	default:
		return "Something went wrong. Please try again."
	}
}
