package handlers

import (
	"net/http"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/response"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
)

type signedInResponse struct {
	User     *domain.UserInfo `json:"user"`
	Redirect string           `json:"redirect"`
}

// Register creates a credential account and signs it in.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := h.sessions.Issue(w, user.Identity()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, signedInResponse{
		User:     user.ToUserInfo(),
		Redirect: access.AfterCallback(viewerOf(user)),
	})
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	user, err := h.authService.SignIn(r.Context(), &req, getClientIP(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if _, err := h.sessions.Issue(w, user.Identity()); err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, signedInResponse{
		User:     user.ToUserInfo(),
		Redirect: access.AfterCallback(viewerOf(user)),
	})
}

// SignOut always clears the cookie, with or without a live session.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	res := session.FromContext(r.Context())
	if !res.IsIdentified() {
		h.sessions.ClearCookie(w)
		response.JSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if err := h.sessions.Revoke(w, r, res.Claims); err != nil {
		logger.ErrorContext(r.Context(), "Failed to revoke session", "error", err)
	}
	h.authService.SignOut(r.Context(), res.Claims)

	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Session reports the resolved session; anonymous callers get
// authenticated=false rather than an error.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	res := session.FromContext(r.Context())
	if !res.IsIdentified() {
		response.JSON(w, http.StatusOK, map[string]interface{}{"authenticated": false, "session": nil})
		return
	}
	response.JSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"session":       toSessionInfo(res.Claims),
	})
}
