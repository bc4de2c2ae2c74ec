package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/gatehouse/gatehouse/internal/shared"
	_ "github.com/gatehouse/gatehouse/testing"
)

func newManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", time.Hour, false), mr
}

func cookieFrom(t *testing.T, res *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := cookieFrom(t, res, sm.CookieName())
	if cookie == nil {
		t.Fatal("no cookie written")
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	restored, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if restored.User() != "42" {
		t.Fatalf("user = %q, want 42", restored.User())
	}
	if restored.Get("theme") != "dark" {
		t.Fatalf("theme = %q, want dark", restored.Get("theme"))
	}
}

func TestSessionRenewRotatesID(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	oldID := sess.ID
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sess.SetUser("7")
	sess.Renew()
	if sess.ID == oldID {
		t.Fatal("Renew did not change session ID")
	}

	res2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, res2, sess); err != nil {
		t.Fatalf("commit after renew: %v", err)
	}

	if mr.Exists("session:" + oldID) {
		t.Fatal("stale session key survived rotation")
	}
	if !mr.Exists("session:" + sess.ID) {
		t.Fatal("renewed session not persisted")
	}

	cookie := cookieFrom(t, res2, sm.CookieName())
	if cookie == nil || cookie.Value != sess.ID {
		t.Fatal("cookie does not carry renewed session ID")
	}
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("42")
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sm.Destroy(sess)
	res2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, res2, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}

	if mr.Exists("session:" + sess.ID) {
		t.Fatal("session key survived destroy")
	}
	cookie := cookieFrom(t, res2, sm.CookieName())
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatal("cookie not invalidated")
	}
}

func TestFlashMessages(t *testing.T) {
	sm, _ := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if msg := sess.PopFlash(); msg != nil {
		t.Fatalf("unexpected flash: %+v", msg)
	}

	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "first"})
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "second"})

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookieFrom(t, res, sm.CookieName()))
	restored, err := sm.Load(ctx, req2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}

	first := restored.PopFlash()
	if first == nil || first.Message != "first" {
		t.Fatalf("first flash = %+v", first)
	}
	second := restored.PopFlash()
	if second == nil || second.Message != "second" || second.Kind != "error" {
		t.Fatalf("second flash = %+v", second)
	}
	if restored.PopFlash() != nil {
		t.Fatal("flash queue not drained")
	}
}

func TestLoadExpiredSessionStartsFresh(t *testing.T) {
	sm, _ := newManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "unknown-id"})
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.User() != "" {
		t.Fatal("fresh session must be anonymous")
	}
	if sess.ID != "unknown-id" {
		t.Fatalf("expected cookie ID reuse, got %q", sess.ID)
	}
}
