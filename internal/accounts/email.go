package accounts

import (
	"fmt"
	"strings"

	"github.com/gatehouse/gatehouse/internal/shared"
)

const maxEmailLength = 254

// NormalizeEmail lowers and trims an email address so that equality and the
// storage uniqueness constraint are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail normalizes the address and rejects values that cannot serve
// as a login handle. Returns the normalized address on success.
func ValidateEmail(email string) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", fmt.Errorf("%w: email required", shared.ErrValidation)
	}
	if len(normalized) > maxEmailLength {
		return "", fmt.Errorf("%w: email too long", shared.ErrValidation)
	}
	at := strings.LastIndexByte(normalized, '@')
	if at <= 0 || at == len(normalized)-1 {
		return "", fmt.Errorf("%w: malformed email", shared.ErrValidation)
	}
	if strings.ContainsAny(normalized, " \t\r\n") {
		return "", fmt.Errorf("%w: malformed email", shared.ErrValidation)
	}
	domain := normalized[at+1:]
	if !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: malformed email", shared.ErrValidation)
	}
	return normalized, nil
}
