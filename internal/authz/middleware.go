package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/gatehouse/gatehouse/internal/accounts"
	"github.com/gatehouse/gatehouse/internal/shared"
)

// Middleware resolves the session principal and gates routes on staff
// status, module access, and named permissions.
type Middleware struct {
	Service *accounts.Service
	Logger  *slog.Logger

	group singleflight.Group
}

// LoadUser resolves the session's user once per request and attaches it to
// the context. Anonymous requests pass through with no user attached.
func (m *Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || strings.TrimSpace(sess.User()) == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := strconv.ParseInt(sess.User(), 10, 64)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("parse session user id", slog.String("value", sess.User()))
			}
			next.ServeHTTP(w, r)
			return
		}
		user, err := m.loadUser(r, id)
		if err != nil {
			// Stale session referencing a deleted account; treat as anonymous.
			next.ServeHTTP(w, r)
			return
		}
		if !user.IsActive {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// loadUser collapses concurrent lookups of the same user into one query.
func (m *Middleware) loadUser(r *http.Request, id int64) (*accounts.User, error) {
	v, err, _ := m.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		return m.Service.GetUser(r.Context(), id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*accounts.User), nil
}

// RequireAuthenticated redirects anonymous requests to the login page.
func (m *Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Redirect(w, r, "/accounts/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireStaff rejects requests from non-staff principals.
func (m *Middleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			http.Redirect(w, r, "/accounts/login", http.StatusSeeOther)
			return
		}
		if !user.IsStaff {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireModule rejects principals without access to the named module.
// Superusers always pass.
func (m *Middleware) RequireModule(module string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				http.Redirect(w, r, "/accounts/login", http.StatusSeeOther)
				return
			}
			if !m.Service.HasModulePerms(user, module) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePerm rejects principals without the named permission. A false
// answer is a deny, not a fault.
func (m *Middleware) RequirePerm(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				http.Redirect(w, r, "/accounts/login", http.StatusSeeOther)
				return
			}
			if !m.Service.HasPerm(user, perm) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
