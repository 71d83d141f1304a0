package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/service"
)

func authErrorURL(code string) string {
	return access.AuthErrorRoute + "?" + url.Values{"error": {code}}.Encode()
}

// GoogleBegin redirects to Google's consent screen.
func (h *Handlers) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	consentURL, err := h.oauthService.Begin(r.Context(), r.URL.Query().Get("callbackUrl"))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to start Google sign-in", "error", err)
		http.Redirect(w, r, authErrorURL("OAuthSignin"), http.StatusFound)
		return
	}
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// GoogleCallback provisions the account, issues the session and hands off
// to the callback route, which decides where the user lands.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("error") != "" {
		http.Redirect(w, r, authErrorURL("AccessDenied"), http.StatusFound)
		return
	}

	user, returnTo, err := h.oauthService.Complete(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		code := "OAuthCallback"
		if errors.Is(err, domain.ErrInvalidState) {
			code = "OAuthState"
		}
		logger.WarnContext(r.Context(), "Google sign-in failed", "error", err)
		http.Redirect(w, r, authErrorURL(code), http.StatusFound)
		return
	}

	if _, err := h.sessions.Issue(w, user.Identity()); err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue session", "error", err)
		http.Redirect(w, r, authErrorURL("OAuthCallback"), http.StatusFound)
		return
	}

	dest := access.CallbackRoute
	if returnTo != "" {
		dest += "?" + url.Values{"callbackUrl": {returnTo}}.Encode()
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// Callback routes a freshly signed-in user. Pending accounts always go to
// role selection; a requested page is honored only once a role is set.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	viewer := session.FromContext(r.Context()).Viewer()
	dest := access.AfterCallback(viewer)

	if viewer.Status == access.Identified && !viewer.RoleSelectionPending {
		if returnTo := service.SafeReturnTo(r.URL.Query().Get("callbackUrl")); returnTo != "" {
			dest = returnTo
		}
	}
	http.Redirect(w, r, dest, http.StatusFound)
}
