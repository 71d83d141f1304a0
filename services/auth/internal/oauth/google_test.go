package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, profile string, profileStatus int) *Google {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(profileStatus)
		w.Write([]byte(profile))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewGoogle(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		CallbackURL:  "http://localhost:8080/api/auth/google/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   srv.URL + "/auth",
			TokenURL:  srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: srv.URL + "/userinfo",
		HTTPClient:  srv.Client(),
	})
}

func TestGoogleAuthCodeURL(t *testing.T) {
	g := newFakeGoogle(t, `{}`, http.StatusOK)

	u, err := url.Parse(g.AuthCodeURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "email")
}

func TestGoogleExchange(t *testing.T) {
	g := newFakeGoogle(t, `{"email":"alice@example.com","email_verified":true,"name":"Alice","picture":"https://img/a.png"}`, http.StatusOK)

	p, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "https://img/a.png", p.Picture)
	assert.True(t, p.EmailVerified)
}

func TestGoogleExchangeFailures(t *testing.T) {
	t.Run("bad code", func(t *testing.T) {
		g := newFakeGoogle(t, `{}`, http.StatusOK)
		_, err := g.Exchange(context.Background(), "bad-code")
		assert.Error(t, err)
	})

	t.Run("profile error", func(t *testing.T) {
		g := newFakeGoogle(t, `{"error":"boom"}`, http.StatusInternalServerError)
		_, err := g.Exchange(context.Background(), "good-code")
		assert.Error(t, err)
	})

	t.Run("profile without email", func(t *testing.T) {
		g := newFakeGoogle(t, `{"name":"No Email"}`, http.StatusOK)
		_, err := g.Exchange(context.Background(), "good-code")
		assert.Error(t, err)
	})
}
