package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/logger"
)

type Options struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

// Manager carries sessions over HTTP: it reads the token from the session
// cookie or a bearer header, refreshes role data and writes the cookie back.
type Manager struct {
	opts        Options
	resolver    *Resolver
	revocations Revocations
}

// NewManager builds a manager. resolver and revocations may be nil, in which
// case claims are trusted as signed and sign-out only clears the cookie.
func NewManager(opts Options, resolver *Resolver, revocations Revocations) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "supperclub_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * 24 * time.Hour
	}
	return &Manager{opts: opts, resolver: resolver, revocations: revocations}
}

func (m *Manager) TTL() time.Duration {
	return m.opts.TTL
}

// Resolve identifies the request. It never fails: anything short of a valid,
// unrevoked token is Anonymous.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) Resolution {
	raw := m.token(r)
	if raw == "" {
		return Anonymous()
	}

	ctx := r.Context()
	claims, err := auth.Parse(raw, m.opts.Secret)
	if err != nil {
		logger.DebugContext(ctx, "Rejected session token", "error", err)
		return Anonymous()
	}

	if m.revocations != nil {
		revoked, err := m.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			// Store outage: the signed token is still trusted.
			logger.WarnContext(ctx, "Session revocation check failed", "error", err)
		} else if revoked {
			return Anonymous()
		}
	}

	refreshed, changed := m.resolver.Refresh(ctx, claims)
	if changed || claims.Remaining(time.Now()) < m.opts.TTL/2 {
		if reissued, err := m.write(w, refreshed); err != nil {
			logger.ErrorContext(ctx, "Failed to reissue session", "error", err)
		} else {
			refreshed = reissued
		}
	}
	return Identified(refreshed)
}

// Issue starts a session for id and sets the cookie.
func (m *Manager) Issue(w http.ResponseWriter, id auth.Identity) (*auth.Claims, error) {
	token, claims, err := auth.NewSessionToken(id, m.opts.Secret, m.opts.TTL)
	if err != nil {
		return nil, err
	}
	m.setCookie(w, token)
	return claims, nil
}

// Update rewrites the cookie for an existing session with new claims.
func (m *Manager) Update(w http.ResponseWriter, claims *auth.Claims) (*auth.Claims, error) {
	return m.write(w, claims)
}

// Revoke ends the session: the id is remembered as revoked and the cookie is
// cleared. The cookie is cleared even if the revocation store fails.
func (m *Manager) Revoke(w http.ResponseWriter, r *http.Request, claims *auth.Claims) error {
	m.ClearCookie(w)
	if m.revocations == nil || claims == nil {
		return nil
	}
	return m.revocations.Revoke(r.Context(), claims.ID, m.opts.TTL)
}

// Middleware resolves the session once per request and stores the result in
// the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := m.Resolve(w, r)
		ctx := WithResolution(r.Context(), res)
		if res.IsIdentified() {
			ctx = context.WithValue(ctx, logger.UserIDKey, res.Claims.Sub)
			ctx = context.WithValue(ctx, logger.SessionIDKey, res.Claims.ID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Manager) token(r *http.Request) string {
	if c, err := r.Cookie(m.opts.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func (m *Manager) write(w http.ResponseWriter, claims *auth.Claims) (*auth.Claims, error) {
	token, c, err := auth.Reissue(claims, m.opts.Secret, m.opts.TTL)
	if err != nil {
		return nil, err
	}
	m.setCookie(w, token)
	return c, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.opts.CookieSecure,
		MaxAge:   int(m.opts.TTL.Seconds()),
	})
}

func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.opts.CookieSecure,
		MaxAge:   -1,
	})
}
