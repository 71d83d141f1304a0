package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/gateway/internal/handlers"
	"github.com/diagnosis/supperclub/services/gateway/internal/proxy"
)

const (
	testSecret = "gateway-test-secret"
	cookieName = "supperclub_session"
)

func TestMain(m *testing.M) {
	logger.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

type mockAccounts struct {
	accounts map[int64]*session.Account
}

func (m *mockAccounts) AccountByID(_ context.Context, id int64) (*session.Account, error) {
	return m.accounts[id], nil
}

func (m *mockAccounts) AccountByEmail(_ context.Context, email string) (*session.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, nil
}

type upstreamHit struct {
	Path   string
	Query  string
	Cookie string
}

func newUpstream(t *testing.T, name string, hits *[]upstreamHit) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits = append(*hits, upstreamHit{Path: r.URL.Path, Query: r.URL.RawQuery, Cookie: r.Header.Get("Cookie")})
		if r.URL.Path == "/auth/google" {
			http.Redirect(w, r, "https://accounts.google.test/auth", http.StatusFound)
			return
		}
		w.Header().Set("X-Upstream", name)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(name))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type gatewayEnv struct {
	router   http.Handler
	authHits []upstreamHit
	webHits  []upstreamHit
	accounts *mockAccounts
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	env := &gatewayEnv{accounts: &mockAccounts{accounts: map[int64]*session.Account{}}}
	authSrv := newUpstream(t, "auth", &env.authHits)
	webSrv := newUpstream(t, "web", &env.webHits)

	sessions := session.NewManager(
		session.Options{Secret: testSecret, TTL: time.Hour, CookieName: cookieName},
		session.NewResolver(env.accounts),
		nil,
	)
	h := handlers.New(
		proxy.NewServiceProxy("auth", authSrv.URL),
		proxy.NewServiceProxy("web", webSrv.URL),
		sessions,
		access.DefaultRoutePolicy,
	)
	r := chi.NewRouter()
	h.Mount(r)
	env.router = r
	return env
}

func (e *gatewayEnv) addAccount(id int64, email string, role access.Role, pending bool) *http.Cookie {
	e.accounts.accounts[id] = &session.Account{ID: id, Email: email, Role: role, RoleSelectionPending: pending}
	token, _, err := auth.NewSessionToken(auth.Identity{
		ID: id, Email: email, Role: string(role), RoleSelectionPending: pending,
	}, testSecret, time.Hour)
	if err != nil {
		panic(err)
	}
	return &http.Cookie{Name: cookieName, Value: token}
}

func (e *gatewayEnv) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthAPIStripsPrefix(t *testing.T) {
	env := newGatewayEnv(t)

	rec := env.get("/api/auth/session?x=1", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "auth" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if len(env.authHits) != 1 || env.authHits[0].Path != "/auth/session" || env.authHits[0].Query != "x=1" {
		t.Fatalf("auth hits = %+v", env.authHits)
	}
}

func TestAuthAPIPassesRedirectsThrough(t *testing.T) {
	env := newGatewayEnv(t)

	rec := env.get("/api/auth/google", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://accounts.google.test/auth" {
		t.Errorf("location = %q", loc)
	}
}

func TestPagePolicy(t *testing.T) {
	env := newGatewayEnv(t)
	guest := env.addAccount(1, "guest@example.com", access.RoleGuest, false)

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		status   int
		location string
	}{
		{"home is public", "/", nil, http.StatusOK, ""},
		{"dinner detail is public", "/dinners/abc", nil, http.StatusOK, ""},
		{"profile needs session", "/profile", nil, http.StatusFound, "/auth/signin?callbackUrl=%2Fprofile"},
		{"profile with session", "/profile", guest, http.StatusOK, ""},
		{"role selection needs session", "/auth/role-selection", nil, http.StatusFound, "/auth/signin?callbackUrl=%2Fauth%2Frole-selection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.get(tt.path, tt.cookie)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.location != "" && rec.Header().Get("Location") != tt.location {
				t.Errorf("location = %q, want %q", rec.Header().Get("Location"), tt.location)
			}
		})
	}
}

func TestBookingGuard(t *testing.T) {
	env := newGatewayEnv(t)
	guest := env.addAccount(1, "guest@example.com", access.RoleGuest, false)
	host := env.addAccount(2, "host@example.com", access.RoleHost, false)
	pending := env.addAccount(3, "new@example.com", access.RoleGuest, true)

	rec := env.get("/booking", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/signin?callbackUrl=%2Fbooking" {
		t.Fatalf("anonymous: status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = env.get("/booking/42", guest)
	if rec.Code != http.StatusOK || rec.Body.String() != "web" {
		t.Fatalf("guest: status = %d", rec.Code)
	}

	rec = env.get("/booking", host)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("host: status = %d", rec.Code)
	}
	var d access.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.State != access.StateDenied || d.Link != "/host/dashboard" || d.RedirectTo != "" {
		t.Errorf("host decision = %+v", d)
	}

	rec = env.get("/booking", pending)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/role-selection" {
		t.Fatalf("pending: status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}

	for _, hit := range env.webHits {
		if hit.Path == "/booking" {
			t.Errorf("denied request reached the frontend: %+v", hit)
		}
	}
}

func TestHostGuardSeesRoleChange(t *testing.T) {
	env := newGatewayEnv(t)
	cookie := env.addAccount(7, "alice@example.com", access.RoleGuest, true)

	rec := env.get("/host/dashboard", cookie)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/role-selection" {
		t.Fatalf("pending: status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}

	// role chosen elsewhere; the old cookie must see it
	env.accounts.accounts[7].Role = access.RoleHost
	env.accounts.accounts[7].RoleSelectionPending = false

	rec = env.get("/host/dashboard", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("after selection: status = %d", rec.Code)
	}
	var rewritten bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			rewritten = true
		}
	}
	if !rewritten {
		t.Error("session cookie not rewritten after role change")
	}
}

func TestHostGuardDeniesGuest(t *testing.T) {
	env := newGatewayEnv(t)
	guest := env.addAccount(1, "guest@example.com", access.RoleGuest, false)

	rec := env.get("/host/dashboard", guest)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUncleanPathsCannotSkipGuards(t *testing.T) {
	env := newGatewayEnv(t)
	guest := env.addAccount(1, "guest@example.com", access.RoleGuest, false)
	host := env.addAccount(2, "host@example.com", access.RoleHost, false)

	tests := []struct {
		name      string
		path      string
		cookie    *http.Cookie
		canonical string
		status    int
	}{
		{"anonymous through public prefix to host", "/dinners/../host/dashboard", nil, "/host/dashboard", http.StatusFound},
		{"anonymous through public prefix to booking", "/dinners/../booking", nil, "/booking", http.StatusFound},
		{"guest through booking to host", "/booking/../host/dashboard", guest, "/host/dashboard", http.StatusForbidden},
		{"host with doubled slash", "//booking", host, "/booking", http.StatusForbidden},
		{"encoded dot segments", "/dinners/%2e%2e/host/dashboard", guest, "/host/dashboard", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hitsBefore := len(env.webHits)

			rec := env.get(tt.path, tt.cookie)
			if rec.Code != http.StatusPermanentRedirect {
				t.Fatalf("status = %d, want redirect to canonical path", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.canonical {
				t.Fatalf("location = %q, want %q", loc, tt.canonical)
			}

			rec = env.get(tt.canonical, tt.cookie)
			if rec.Code != tt.status {
				t.Fatalf("canonical status = %d, want %d", rec.Code, tt.status)
			}
			if len(env.webHits) != hitsBefore {
				t.Errorf("frontend reached: %+v", env.webHits[hitsBefore:])
			}
		})
	}
}

func TestBareHostPathIsGuarded(t *testing.T) {
	env := newGatewayEnv(t)
	guest := env.addAccount(1, "guest@example.com", access.RoleGuest, false)
	host := env.addAccount(2, "host@example.com", access.RoleHost, false)

	rec := env.get("/host", guest)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("guest status = %d", rec.Code)
	}
	rec = env.get("/host", nil)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/signin?callbackUrl=%2Fhost" {
		t.Fatalf("anonymous: status = %d location = %q", rec.Code, rec.Header().Get("Location"))
	}
	if len(env.webHits) != 0 {
		t.Fatalf("frontend reached: %+v", env.webHits)
	}

	rec = env.get("/host", host)
	if rec.Code != http.StatusOK {
		t.Fatalf("host status = %d", rec.Code)
	}
}
