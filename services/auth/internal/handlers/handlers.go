package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/response"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/service"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	authService  service.AuthService
	oauthService service.OAuthService
	roleService  service.RoleService
	sessions     *session.Manager
}

func New(
	authService service.AuthService,
	oauthService service.OAuthService,
	roleService service.RoleService,
	sessions *session.Manager,
) *Handlers {
	return &Handlers{
		authService:  authService,
		oauthService: oauthService,
		roleService:  roleService,
		sessions:     sessions,
	}
}

// Mount registers the /auth routes. Every route sees the resolved session.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(h.sessions.Middleware)

		r.Post("/register", h.Register)
		r.Post("/signin", h.SignIn)
		r.Post("/signout", h.SignOut)

		r.Get("/google", h.GoogleBegin)
		r.Get("/google/callback", h.GoogleCallback)
		r.Get("/callback", h.Callback)

		r.Get("/session", h.Session)
		r.Get("/check-role-selection", h.CheckRoleSelection)
		r.Get("/current-user", h.CurrentUser)
		r.Post("/update-role", h.UpdateRole)
		r.Get("/access/{guard}", h.Access)
	})
}

type sessionInfo struct {
	ID                 int64      `json:"id"`
	Email              string     `json:"email"`
	Name               string     `json:"name,omitempty"`
	Role               string     `json:"role"`
	NeedsRoleSelection bool       `json:"needsRoleSelection"`
	Expires            *time.Time `json:"expires,omitempty"`
}

func toSessionInfo(c *auth.Claims) *sessionInfo {
	info := &sessionInfo{
		ID:                 c.Sub,
		Email:              c.Email,
		Name:               c.Name,
		Role:               c.Role,
		NeedsRoleSelection: c.RoleSelectionPending,
	}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time.UTC()
		info.Expires = &exp
	}
	return info
}

// claimsOrUnauthorized writes 401 and returns nil when the request has no
// session.
func claimsOrUnauthorized(w http.ResponseWriter, r *http.Request) *auth.Claims {
	res := session.FromContext(r.Context())
	if !res.IsIdentified() {
		response.Unauthorized(w, "Unauthorized")
		return nil
	}
	return res.Claims
}

// writeServiceError maps service errors to responses. Store detail is
// logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(w, "Unauthorized")
	case errors.Is(err, domain.ErrInvalidRole):
		response.WriteError(w, http.StatusBadRequest, "Invalid role", response.CodeInvalidRole)
	case errors.Is(err, domain.ErrValidation):
		response.WriteErrorWithDetails(w, http.StatusBadRequest, "Invalid input", response.CodeInvalidInput,
			strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.WriteError(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error(), response.CodeInvalidCreds)
	case errors.Is(err, domain.ErrEmailTaken):
		response.WriteError(w, http.StatusConflict, domain.ErrEmailTaken.Error(), response.CodeEmailExists)
	case errors.Is(err, domain.ErrRateLimited):
		response.WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", response.CodeRateLimit)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		response.InternalError(w, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	return dec.Decode(v)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func viewerOf(u *domain.User) access.Viewer {
	return access.Viewer{
		Status:               access.Identified,
		Role:                 u.Role,
		RoleSelectionPending: u.RoleSelectionPending,
	}
}
