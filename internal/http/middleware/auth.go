package middleware

import (
	"net/http"

	"github.com/ngocanhtran/product-catalog/internal/session"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login/"

// RequireAuth redirects requests without a valid session to the login page
// and puts the authenticated user on the request context otherwise.
func RequireAuth(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.FromRequest(r)
			if err != nil {
				http.Redirect(w, r, LoginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), user)))
		})
	}
}
