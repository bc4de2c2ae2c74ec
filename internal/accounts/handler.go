package accounts

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/shared"
	"github.com/gatehouse/gatehouse/internal/view"
)

// TaskEnqueuer schedules background work triggered by account events.
type TaskEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, email, name string) error
}

// Handler wires HTTP endpoints for registration and login flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	sessions  *shared.SessionManager
	csrf      *shared.CSRFManager
	tasks     TaskEnqueuer
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewHandler constructs a Handler. tasks and metrics may be nil when no
// background worker or metrics endpoint is deployed.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, tasks TaskEnqueuer, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		sessions:  sessions,
		csrf:      csrf,
		tasks:     tasks,
		metrics:   metrics,
		validator: validator.New(),
	}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type registerForm struct {
	Email     string `validate:"required,email"`
	FirstName string `validate:"max=150"`
	LastName  string `validate:"max=150"`
	Password  string `validate:"required,min=8"`
	Password2 string `validate:"required"`
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type formPageData struct {
	Form   any
	Errors map[string]string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/register.html", "Create account",
		formPageData{Form: registerForm{}, Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := registerForm{
		Email:     r.PostFormValue("email"),
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
	fieldErrors := h.validateForm(form)
	if form.Password != form.Password2 {
		fieldErrors["Password2"] = "Passwords do not match."
	}

	if len(fieldErrors) == 0 {
		user, err := h.service.CreateUser(r.Context(), form.Email, form.Password, CreateParams{
			FirstName: form.FirstName,
			LastName:  form.LastName,
		})
		switch {
		case err == nil:
			h.metrics.RecordSignup()
			if h.tasks != nil {
				if err := h.tasks.EnqueueWelcomeEmail(r.Context(), user.Email, user.FullName()); err != nil {
					h.logger.Warn("enqueue welcome email", slog.Any("error", err))
				}
			}
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Account created. You can sign in now."})
			}
			http.Redirect(w, r, "/accounts/login", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrEmailTaken):
			fieldErrors["Email"] = shared.UserSafeMessage(err)
		case errors.Is(err, shared.ErrValidation):
			fieldErrors["general"] = shared.UserSafeMessage(err)
		default:
			h.logger.Error("create user", slog.Any("error", err))
			fieldErrors["general"] = shared.UserSafeMessage(err)
		}
	}

	h.renderPage(w, r, "pages/register.html", "Create account",
		formPageData{Form: form, Errors: fieldErrors}, http.StatusBadRequest)
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/login.html", "Sign in",
		formPageData{Form: loginForm{}, Errors: map[string]string{}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	fieldErrors := h.validateForm(form)

	if len(fieldErrors) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
		if err != nil {
			h.metrics.RecordLogin("failure")
			fieldErrors["general"] = shared.UserSafeMessage(shared.ErrInvalidCredentials)
		} else {
			h.metrics.RecordLogin("success")
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// Rotate the session ID so the pre-login ID cannot be replayed.
			sess.Renew()
			sess.Delete(shared.CSRFSessionKey)
			sess.SetUser(strconv.FormatInt(user.ID, 10))
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back."})

			expiresAt := time.Now().Add(h.sessions.TTL())
			if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	h.renderPage(w, r, "pages/login.html", "Sign in",
		formPageData{Form: form, Errors: fieldErrors}, http.StatusBadRequest)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessions.Destroy(sess)
	}
	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}

func (h *Handler) validateForm(form any) map[string]string {
	fieldErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				fieldErrors[fieldErr.Field()] = fieldMessage(fieldErr)
			}
		}
	}
	return fieldErrors
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return "Must be at least " + err.Param() + " characters."
	case "max":
		return "Must be at most " + err.Param() + " characters."
	default:
		return "Invalid value."
	}
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, template, title string, data formPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
