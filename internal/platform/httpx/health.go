package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Check probes one backing service.
type Check func(ctx context.Context) error

// HealthReport is the body of a healthy /healthz answer.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health answers 200 with a HealthReport when every check passes and 503 with
// a problem naming the first failing check otherwise. Checks run in name
// order, each bounded by timeout.
func Health(logger *slog.Logger, timeout time.Duration, checks map[string]Check) http.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := HealthReport{Status: "ok"}
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			err := checks[name](ctx)
			cancel()
			if err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				Problem(w, http.StatusServiceUnavailable, "Service Unavailable", name+" unreachable")
				return
			}
			if report.Checks == nil {
				report.Checks = make(map[string]string, len(names))
			}
			report.Checks[name] = "ok"
		}
		JSON(w, http.StatusOK, report)
	})
}
