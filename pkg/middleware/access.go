package middleware

import (
	"net/http"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/response"
	"github.com/diagnosis/supperclub/pkg/session"
)

// RequireSession sends anonymous visitors of non-public pages to sign-in,
// remembering where they were headed. It must run after the session
// middleware.
func RequireSession(policy access.RoutePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if policy.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if res := session.FromContext(r.Context()); !res.IsIdentified() {
				http.Redirect(w, r, access.SignInURL(r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard enforces g on every request it wraps.
func Guard(g access.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := session.FromContext(r.Context()).Viewer()
			d := g.Decide(viewer, r.URL.RequestURI())

			switch d.State {
			case access.StateAllowed:
				next.ServeHTTP(w, r)
			case access.StateLoading:
				w.Header().Set("Retry-After", "1")
				response.WriteError(w, http.StatusServiceUnavailable, "Session not resolved yet", response.CodeUnavailable)
			case access.StateDenied:
				logger.InfoContext(r.Context(), "Access denied", "guard", g.Name, "role", viewer.Role)
				response.JSON(w, http.StatusForbidden, d)
			default:
				http.Redirect(w, r, d.RedirectTo, http.StatusFound)
			}
		})
	}
}
