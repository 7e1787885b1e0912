package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/webpage-auth/webpage/internal/observability"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/view"
)

// Flash texts shown by the signup flow.
const (
	MsgFieldsRequired = "All fields are required."
	MsgUsernameTaken  = "Username already exists. Please choose a different one."
	MsgSignupSuccess  = "Account created successfully! Please log in."
)

// Session keys holding the last signup input so the form can be refilled.
const (
	stickyFirstName = "signup_first_name"
	stickyLastName  = "signup_last_name"
	stickyUsername  = "signup_username"
)

// Handler manages signup and user listing endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	responder   *view.Responder
	metrics     *observability.Metrics
	requireUser func(http.Handler) http.Handler
}

// NewHandler builds Handler instance. requireUser guards the listing.
func NewHandler(logger *slog.Logger, service *Service, responder *view.Responder, metrics *observability.Metrics, requireUser func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, responder: responder, metrics: metrics, requireUser: requireUser}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/signup", h.responder.Handle(h.showSignup))
	r.Post("/submit_signup", h.responder.Handle(h.submitSignup))
	r.Group(func(r chi.Router) {
		r.Use(h.requireUser)
		r.Get("/users", h.responder.Handle(h.listUsers))
	})
}

type signupPageData struct {
	FirstName string
	LastName  string
	Username  string
}

type usersPageData struct {
	Users []User
}

func (h *Handler) showSignup(r *http.Request) (view.Result, error) {
	data := signupPageData{}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		data.FirstName = sess.Get(stickyFirstName)
		data.LastName = sess.Get(stickyLastName)
		data.Username = sess.Get(stickyUsername)
		sess.Delete(stickyFirstName)
		sess.Delete(stickyLastName)
		sess.Delete(stickyUsername)
	}
	return view.Page("pages/signup.html", "Sign up", data), nil
}

func (h *Handler) submitSignup(r *http.Request) (view.Result, error) {
	if err := r.ParseForm(); err != nil {
		return view.RedirectTo("/signup").WithFlash("error", MsgFieldsRequired), nil
	}
	in := SignupInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("create_username"),
		Password:  r.PostFormValue("create_password"),
	}

	user, err := h.service.Signup(r.Context(), in)
	switch {
	case err == nil:
		h.metrics.ObserveSignup(observability.OutcomeSuccess)
		h.logger.Info("user signed up", slog.Int64("id", user.ID), slog.String("username", user.Username))
		return view.RedirectTo("/login").WithFlash("success", MsgSignupSuccess), nil
	case errors.Is(err, shared.ErrValidation):
		h.metrics.ObserveSignup(observability.OutcomeInvalid)
		h.keepInput(r, in)
		return view.RedirectTo("/signup").WithFlash("error", MsgFieldsRequired), nil
	case errors.Is(err, shared.ErrDuplicateUsername):
		h.metrics.ObserveSignup(observability.OutcomeDuplicate)
		h.keepInput(r, in)
		return view.RedirectTo("/signup").WithFlash("error", MsgUsernameTaken), nil
	default:
		h.metrics.ObserveSignup(observability.OutcomeError)
		return view.Result{}, err
	}
}

func (h *Handler) listUsers(r *http.Request) (view.Result, error) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return view.Result{}, err
	}
	return view.Page("pages/users.html", "Users", usersPageData{Users: users}), nil
}

// keepInput stores the non-secret fields so the redirected form is refilled.
func (h *Handler) keepInput(r *http.Request, in SignupInput) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return
	}
	sess.Set(stickyFirstName, in.FirstName)
	sess.Set(stickyLastName, in.LastName)
	sess.Set(stickyUsername, in.Username)
}
