package view

import (
	"log/slog"
	"net/http"

	"github.com/webpage-auth/webpage/internal/shared"
)

// Result is what a page handler decides: either a page to render or a
// location to redirect to, plus the flash messages that go with it.
type Result struct {
	Template string
	Title    string
	Status   int
	Redirect string
	Flashes  []shared.FlashMessage
	Data     any
}

// Page renders template with status 200.
func Page(template, title string, data any) Result {
	return Result{Template: template, Title: title, Status: http.StatusOK, Data: data}
}

// RedirectTo answers 303 See Other to location.
func RedirectTo(location string) Result {
	return Result{Redirect: location, Status: http.StatusSeeOther}
}

// WithStatus overrides the response status.
func (r Result) WithStatus(status int) Result {
	r.Status = status
	return r
}

// WithFlash attaches a flash message. On redirects it survives into the next
// request; on pages it is shown immediately.
func (r Result) WithFlash(kind, message string) Result {
	r.Flashes = append(r.Flashes, shared.FlashMessage{Kind: kind, Message: message})
	return r
}

// HandlerFunc computes a Result for a request. Returned errors are
// unexpected failures and become a 500 page.
type HandlerFunc func(r *http.Request) (Result, error)

// Responder turns Results into HTTP responses.
type Responder struct {
	logger    *slog.Logger
	templates *Engine
}

// NewResponder constructs a Responder.
func NewResponder(logger *slog.Logger, templates *Engine) *Responder {
	return &Responder{logger: logger, templates: templates}
}

// Handle adapts fn to an http.HandlerFunc.
func (rs *Responder) Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := fn(r)
		if err != nil {
			rs.logger.Error("handle request", slog.String("path", r.URL.Path), slog.Any("error", err))
			rs.renderError(w, r)
			return
		}
		rs.Write(w, r, res)
	}
}

// Write sends res to the client.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, res Result) {
	sess := shared.SessionFromContext(r.Context())
	if res.Redirect != "" {
		if sess != nil {
			for _, f := range res.Flashes {
				sess.AddFlash(f)
			}
		}
		status := res.Status
		if status < 300 || status > 399 {
			status = http.StatusSeeOther
		}
		http.Redirect(w, r, res.Redirect, status)
		return
	}

	var flashes []shared.FlashMessage
	if sess != nil {
		flashes = sess.PopFlashes()
	}
	flashes = append(flashes, res.Flashes...)
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	data := TemplateData{
		Title:       res.Title,
		Flashes:     flashes,
		CurrentPath: r.URL.Path,
		CurrentUser: shared.CurrentUsername(r.Context()),
		Data:        res.Data,
	}
	if err := rs.templates.Render(w, status, res.Template, data); err != nil {
		rs.logger.Error("render template", slog.String("template", res.Template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (rs *Responder) renderError(w http.ResponseWriter, r *http.Request) {
	data := TemplateData{Title: "Error", CurrentPath: r.URL.Path, CurrentUser: shared.CurrentUsername(r.Context())}
	if err := rs.templates.Render(w, http.StatusInternalServerError, "pages/error.html", data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
