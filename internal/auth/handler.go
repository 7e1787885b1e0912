package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/webpage-auth/webpage/internal/observability"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/view"
)

// InvalidCredentialsMessage is shown for every failed login.
const InvalidCredentialsMessage = "Invalid username or password."

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	responder      *view.Responder
	sessionManager *shared.SessionManager
	metrics        *observability.Metrics
	validator      *validator.Validate
	loginLimit     int
}

// NewHandler constructs a Handler instance. loginLimit caps login attempts
// per client IP per minute; zero disables the cap.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, sessions *shared.SessionManager, metrics *observability.Metrics, loginLimit int) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		responder:      responder,
		sessionManager: sessions,
		metrics:        metrics,
		validator:      validator.New(),
		loginLimit:     loginLimit,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.responder.Handle(h.showLogin))
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.Limit(h.loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		}
		r.Post("/login", h.responder.Handle(h.handleLogin))
	})
	r.Post("/logout", h.responder.Handle(h.handleLogout))
	r.With(RequireUser).Get("/home", h.responder.Handle(h.showHome))
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type loginPageData struct {
	Username string
}

type homePageData struct {
	Username string
}

func (h *Handler) showLogin(r *http.Request) (view.Result, error) {
	return view.Page("pages/login.html", "Log in", loginPageData{}), nil
}

func (h *Handler) handleLogin(r *http.Request) (view.Result, error) {
	if err := r.ParseForm(); err != nil {
		return view.Page("pages/login.html", "Log in", loginPageData{}).
			WithStatus(http.StatusBadRequest).
			WithFlash("error", InvalidCredentialsMessage), nil
	}
	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	invalid := view.Page("pages/login.html", "Log in", loginPageData{Username: form.Username}).
		WithStatus(http.StatusBadRequest).
		WithFlash("error", InvalidCredentialsMessage)

	if err := h.validator.Struct(form); err != nil {
		h.metrics.ObserveLogin(observability.OutcomeInvalid)
		return invalid, nil
	}

	user, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.metrics.ObserveLogin(observability.OutcomeInvalid)
			return invalid, nil
		}
		h.metrics.ObserveLogin(observability.OutcomeError)
		return view.Result{}, err
	}

	if _, err := h.service.StartSession(r.Context(), user.Username); err != nil {
		h.metrics.ObserveLogin(observability.OutcomeError)
		return view.Result{}, err
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Renew(sess)
		sess.SetUser(user.Username)
	} else {
		h.logger.Error("session missing during login")
	}
	h.metrics.ObserveLogin(observability.OutcomeSuccess)
	h.logger.Info("user logged in", slog.String("username", user.Username))
	return view.RedirectTo("/home"), nil
}

func (h *Handler) handleLogout(r *http.Request) (view.Result, error) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return view.RedirectTo("/"), nil
	}
	username := sess.User()
	h.sessionManager.Destroy(sess)
	if username == "" {
		return view.RedirectTo("/"), nil
	}
	if _, err := h.service.EndSession(r.Context(), username); err != nil {
		return view.Result{}, err
	}
	h.metrics.ObserveLogout()
	h.logger.Info("user logged out", slog.String("username", username))
	return view.RedirectTo("/"), nil
}

func (h *Handler) showHome(r *http.Request) (view.Result, error) {
	return view.Page("pages/home.html", "Home", homePageData{Username: shared.CurrentUsername(r.Context())}), nil
}
