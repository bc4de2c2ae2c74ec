package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/accounts"
	"github.com/gatehouse/gatehouse/internal/authz"
	"github.com/gatehouse/gatehouse/internal/shared"
	"github.com/gatehouse/gatehouse/internal/view"
)

// Handler serves the staff-only account administration surface.
type Handler struct {
	logger    *slog.Logger
	service   *accounts.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	authz     *authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *accounts.Service, templates *view.Engine, csrf *shared.CSRFManager, az *authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, authz: az}
}

// MountRoutes registers admin routes. The whole surface requires a staff
// account with access to the accounts module; mutations additionally check
// a fine-grained permission inside the service.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireStaff)
		r.Use(h.authz.RequireModule(authz.ModuleAccounts))
		r.Get("/users", h.listUsers)
		r.Post("/users/{id}/promote", h.promoteUser)
		r.Post("/users/{id}/deactivate", h.setActive(false))
		r.Post("/users/{id}/activate", h.setActive(true))
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		h.render(w, r, map[string]any{"Errors": map[string]string{"general": shared.UserSafeMessage(err)}}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, map[string]any{"Users": users}, http.StatusOK)
}

func (h *Handler) promoteUser(w http.ResponseWriter, r *http.Request) {
	h.mutateUser(w, r, "User promoted to superuser.", func(actor *accounts.User, id int64) error {
		return h.service.Promote(r.Context(), actor, id)
	})
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	message := "User deactivated."
	if active {
		message = "User activated."
	}
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutateUser(w, r, message, func(actor *accounts.User, id int64) error {
			return h.service.SetActive(r.Context(), actor, id, active)
		})
	}
}

func (h *Handler) mutateUser(w http.ResponseWriter, r *http.Request, message string, op func(*accounts.User, int64) error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actor := authz.UserFromContext(r.Context())
	if err := op(actor, id); err != nil {
		switch {
		case errors.Is(err, accounts.ErrForbidden):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, shared.ErrNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update user", slog.Int64("user_id", id), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "success", Message: message})
	}
	http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Accounts admin",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if user := authz.UserFromContext(r.Context()); user != nil {
		viewData.UserEmail = user.Email
		viewData.IsStaff = user.IsStaff
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, "pages/admin/users.html", viewData); err != nil {
		h.logger.Error("render admin users", slog.Any("error", err))
	}
}
