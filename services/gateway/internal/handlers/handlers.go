package handlers

import (
	"net/http"
	"strings"

	"github.com/diagnosis/supperclub/pkg/access"
	mw "github.com/diagnosis/supperclub/pkg/middleware"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/gateway/internal/proxy"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	authProxy *proxy.ServiceProxy
	webProxy  *proxy.ServiceProxy
	sessions  *session.Manager
	policy    access.RoutePolicy
}

func New(authProxy, webProxy *proxy.ServiceProxy, sessions *session.Manager, policy access.RoutePolicy) *Handlers {
	return &Handlers{
		authProxy: authProxy,
		webProxy:  webProxy,
		sessions:  sessions,
		policy:    policy,
	}
}

// Mount wires the public entry point. Paths are canonicalized before any
// routing. Auth API calls go straight to the auth service; every page request
// is resolved against the session first.
func (h *Handlers) Mount(r chi.Router) {
	r.Use(mw.CanonicalPath)

	r.HandleFunc("/api/auth/*", h.AuthAPI)

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(mw.Guard(access.BookingGuard))
			r.HandleFunc("/booking", h.Web)
			r.HandleFunc("/booking/*", h.Web)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Guard(access.HostGuard))
			r.HandleFunc("/host", h.Web)
			r.HandleFunc("/host/*", h.Web)
		})

		r.With(mw.RequireSession(h.policy)).HandleFunc("/*", h.Web)
	})
}

// AuthAPI strips the /api prefix and forwards to the auth service.
func (h *Handlers) AuthAPI(w http.ResponseWriter, r *http.Request) {
	h.authProxy.Forward(w, r, strings.TrimPrefix(r.URL.Path, "/api"))
}

// Web forwards an allowed page request to the frontend.
func (h *Handlers) Web(w http.ResponseWriter, r *http.Request) {
	h.webProxy.Forward(w, r, r.URL.Path)
}
