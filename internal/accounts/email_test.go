package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/gatehouse/gatehouse/internal/shared"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Alice@Example.COM", "alice@example.com"},
		{"  bob@example.com \n", "bob@example.com"},
		{"carol@example.com", "carol@example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"alice@example.com",
		"First.Last@Sub.Example.ORG",
		" padded@example.com ",
	}
	for _, in := range valid {
		if _, err := ValidateEmail(in); err != nil {
			t.Errorf("ValidateEmail(%q) unexpected error: %v", in, err)
		}
	}

	invalid := []string{
		"",
		"   ",
		"no-at-sign",
		"@example.com",
		"alice@",
		"alice@nodot",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, in := range invalid {
		if _, err := ValidateEmail(in); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("ValidateEmail(%q) = %v, want validation error", in, err)
		}
	}
}
