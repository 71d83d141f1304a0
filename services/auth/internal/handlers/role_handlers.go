package handlers

import (
	"errors"
	"net/http"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/response"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) CheckRoleSelection(w http.ResponseWriter, r *http.Request) {
	claims := claimsOrUnauthorized(w, r)
	if claims == nil {
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), claims)
	if errors.Is(err, domain.ErrNotFound) {
		response.NotFound(w, "User not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"needsRoleSelection": user.RoleSelectionPending,
		"currentRole":        user.Role,
	})
}

func (h *Handlers) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsOrUnauthorized(w, r)
	if claims == nil {
		return
	}

	user, err := h.authService.CurrentUser(r.Context(), claims)
	if errors.Is(err, domain.ErrNotFound) {
		response.NotFound(w, "User not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"user":    user.ToUserInfo(),
		"session": toSessionInfo(claims),
	})
}

// UpdateRole records the role chosen after an external sign-up and rewrites
// the session cookie so the choice takes effect immediately.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	claims := claimsOrUnauthorized(w, r)
	if claims == nil {
		return
	}

	var req domain.UpdateRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid role", response.CodeInvalidRole)
		return
	}

	user, err := h.roleService.SelectRole(r.Context(), claims, req.Role)
	if err != nil {
		// a missing account here is a server-side inconsistency, not a 404
		writeServiceError(w, r, err)
		return
	}

	next := *claims
	next.Sub = user.ID
	next.Role = string(user.Role)
	next.RoleSelectionPending = user.RoleSelectionPending
	if _, err := h.sessions.Update(w, &next); err != nil {
		logger.ErrorContext(r.Context(), "Failed to rewrite session after role selection", "error", err)
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"role":    user.Role,
	})
}

// Access evaluates a named guard for the caller.
func (h *Handlers) Access(w http.ResponseWriter, r *http.Request) {
	g, ok := access.LookupGuard(chi.URLParam(r, "guard"))
	if !ok {
		response.NotFound(w, "Unknown guard")
		return
	}
	viewer := session.FromContext(r.Context()).Viewer()
	response.JSON(w, http.StatusOK, g.Decide(viewer, r.URL.Query().Get("path")))
}
