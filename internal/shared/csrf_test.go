package shared_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gatehouse/gatehouse/internal/shared"
)

func newSessionForCSRF(t *testing.T) *shared.Session {
	t.Helper()
	sm, _ := newManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func TestEnsureTokenIsStable(t *testing.T) {
	m := shared.NewCSRFManager("secret")
	sess := newSessionForCSRF(t)
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	again, err := m.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again != token {
		t.Fatal("token changed within one session")
	}
}

func TestVerifyToken(t *testing.T) {
	m := shared.NewCSRFManager("secret")
	sess := newSessionForCSRF(t)
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := m.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := m.VerifyToken(ctx, sess, "forged"); !errors.Is(err, shared.ErrCSRFTokenMismatch) {
		t.Fatalf("forged token: %v", err)
	}
	if err := m.VerifyToken(ctx, sess, ""); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("empty token: %v", err)
	}
	if err := m.VerifyToken(ctx, nil, token); !errors.Is(err, shared.ErrCSRFTokenMissing) {
		t.Fatalf("nil session: %v", err)
	}
}

func TestEnsureTokenWithoutSession(t *testing.T) {
	m := shared.NewCSRFManager("secret")
	if _, err := m.EnsureToken(context.Background(), nil); err == nil {
		t.Fatal("expected error without session")
	}
}
