package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/webpage-auth/webpage/internal/auth"
	"github.com/webpage-auth/webpage/internal/observability"
	"github.com/webpage-auth/webpage/internal/platform/httpx"
	"github.com/webpage-auth/webpage/internal/shared"
	"github.com/webpage-auth/webpage/internal/users"
	"github.com/webpage-auth/webpage/internal/view"
	"github.com/webpage-auth/webpage/web"
)

// HealthCheck reports whether a backing service is reachable.
type HealthCheck = httpx.Check

const healthCheckTimeout = 2 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Responder      *view.Responder
	SessionManager *shared.SessionManager
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	Metrics        *observability.Metrics
	HealthChecks   map[string]HealthCheck
	RequestLogging bool
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	if params.RequestLogging {
		r.Use(chimw.Logger)
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Method(http.MethodGet, "/healthz", httpx.Health(params.Logger, healthCheckTimeout, params.HealthChecks))

	r.Get("/", params.Responder.Handle(func(r *http.Request) (view.Result, error) {
		return view.Page("pages/index.html", "Welcome", nil), nil
	}))

	params.AuthHandler.MountRoutes(r)
	params.UsersHandler.MountRoutes(r)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
