package auth

import (
	"net/http"

	"github.com/webpage-auth/webpage/internal/shared"
)

// LoginPath is where anonymous visitors of protected pages are sent.
const LoginPath = "/login"

// RequireUser redirects anonymous requests to the login page. Protected
// responses are marked no-store so they cannot be replayed from the browser
// cache after logout.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.CurrentUsername(r.Context()) == "" {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
