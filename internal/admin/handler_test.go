package admin_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/accounts"
	"github.com/gatehouse/gatehouse/internal/admin"
	"github.com/gatehouse/gatehouse/internal/authz"
	"github.com/gatehouse/gatehouse/internal/shared"
	"github.com/gatehouse/gatehouse/internal/view"
	_ "github.com/gatehouse/gatehouse/testing"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[int64]*accounts.User
}

func (r *fakeRepo) Insert(ctx context.Context, user *accounts.User) error { return nil }

func (r *fakeRepo) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRepo) FindByID(ctx context.Context, id int64) (*accounts.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]accounts.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []accounts.User
	for i := int64(1); i <= int64(len(r.users)); i++ {
		if u, ok := r.users[i]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (r *fakeRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error { return nil }

func (r *fakeRepo) UpdateFlags(ctx context.Context, id int64, isActive, isStaff, isSuperuser bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = isActive
	u.IsStaff = isStaff
	u.IsSuperuser = isSuperuser
	return nil
}

func (r *fakeRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r *fakeRepo) DeleteSession(ctx context.Context, id string) error { return nil }

func newAdminRouter(t *testing.T, repo *fakeRepo) *chi.Mux {
	t.Helper()
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := accounts.NewService(repo, nil)
	az := &authz.Middleware{Service: service, Logger: logger}
	handler := admin.NewHandler(logger, service, templates, csrfManager, az)

	router := chi.NewRouter()
	router.Use(az.LoadUser)
	router.Route("/admin", handler.MountRoutes)
	return router
}

func seedUsers() *fakeRepo {
	return &fakeRepo{users: map[int64]*accounts.User{
		1: {ID: 1, Email: "root@example.com", IsActive: true, IsStaff: true, IsSuperuser: true},
		2: {ID: 2, Email: "staff@example.com", IsActive: true, IsStaff: true},
		3: {ID: 3, Email: "alice@example.com", IsActive: true},
	}}
}

func getAs(t *testing.T, router *chi.Mux, userID, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	attachSession(req, userID)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func postAs(t *testing.T, router *chi.Mux, userID, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(url.Values{}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	attachSession(req, userID)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

// attachSession marks the request cookie-less session as belonging to the
// given user before the session middleware runs.
func attachSession(req *http.Request, userID string) {
	if userID == "" {
		return
	}
	sess := &shared.Session{}
	sess.SetUser(userID)
	*req = *req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestListUsersRequiresStaff(t *testing.T) {
	router := newAdminRouter(t, seedUsers())

	// Anonymous visitors are sent to the login page.
	res := getAs(t, router, "", "/admin/users")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("anonymous: expected 303, got %d", res.Code)
	}

	// A regular account is rejected outright.
	res = getAs(t, router, "3", "/admin/users")
	if res.Code != http.StatusForbidden {
		t.Fatalf("regular user: expected 403, got %d", res.Code)
	}

	// Staff without superuser holds no module grant.
	res = getAs(t, router, "2", "/admin/users")
	if res.Code != http.StatusForbidden {
		t.Fatalf("plain staff: expected 403, got %d", res.Code)
	}

	// A superuser sees the account list.
	res = getAs(t, router, "1", "/admin/users")
	if res.Code != http.StatusOK {
		t.Fatalf("superuser: expected 200, got %d", res.Code)
	}
	body := res.Body.String()
	for _, email := range []string{"root@example.com", "staff@example.com", "alice@example.com"} {
		if !strings.Contains(body, email) {
			t.Fatalf("expected %s in listing", email)
		}
	}
}

func TestPromoteUser(t *testing.T) {
	repo := seedUsers()
	router := newAdminRouter(t, repo)

	res := postAs(t, router, "1", "/admin/users/3/promote")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}

	promoted, err := repo.FindByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("find promoted user: %v", err)
	}
	if !promoted.IsSuperuser || !promoted.IsStaff {
		t.Fatalf("user not promoted: %+v", promoted)
	}
}

func TestPromoteUnknownUser(t *testing.T) {
	router := newAdminRouter(t, seedUsers())

	res := postAs(t, router, "1", "/admin/users/999/promote")
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDeactivateAndActivateUser(t *testing.T) {
	repo := seedUsers()
	router := newAdminRouter(t, repo)

	res := postAs(t, router, "1", "/admin/users/3/deactivate")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("deactivate: expected 303, got %d", res.Code)
	}
	user, _ := repo.FindByID(context.Background(), 3)
	if user.IsActive {
		t.Fatal("user still active")
	}

	res = postAs(t, router, "1", "/admin/users/3/activate")
	if res.Code != http.StatusSeeOther {
		t.Fatalf("activate: expected 303, got %d", res.Code)
	}
	user, _ = repo.FindByID(context.Background(), 3)
	if !user.IsActive {
		t.Fatal("user not reactivated")
	}
}
