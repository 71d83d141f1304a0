package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/config"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testAuthConfig = config.AuthConfig{LoginAttempts: 3, LoginWindow: time.Minute}

func withPassword(t *testing.T, repo *mockUserRepo, email, password string, role access.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return repo.add(&domain.User{Email: email, Name: "Test", PasswordHash: &hash, Role: role})
}

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	pub := &mockPublisher{}
	svc := NewAuthService(repo, nil, pub, testAuthConfig)

	user, err := svc.Register(context.Background(), &domain.RegisterRequest{
		Name: "Carol", Email: "Carol@Example.com", Password: "secret1", Role: "host",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, access.RoleHost, user.Role)
	assert.False(t, user.RoleSelectionPending)
	assert.Nil(t, user.EmailVerifiedAt)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "secret1", *user.PasswordHash)
	assert.Equal(t, []string{events.UserRegistered}, pub.subjects())

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &domain.RegisterRequest{
			Name: "Carol 2", Email: "carol@example.com", Password: "secret2",
		})
		assert.ErrorIs(t, err, domain.ErrEmailTaken)
		assert.Equal(t, 1, repo.creates)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Register(context.Background(), &domain.RegisterRequest{Email: "x@example.com", Password: "1"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("defaults to guest", func(t *testing.T) {
		u, err := svc.Register(context.Background(), &domain.RegisterRequest{
			Name: "Dan", Email: "dan@example.com", Password: "secret1",
		})
		require.NoError(t, err)
		assert.Equal(t, access.RoleGuest, u.Role)
	})
}

func TestSignIn(t *testing.T) {
	repo := newMockUserRepo()
	withPassword(t, repo, "bob@example.com", "s3cret!", access.RoleHost)
	svc := NewAuthService(repo, nil, &mockPublisher{}, testAuthConfig)

	t.Run("host signs in", func(t *testing.T) {
		user, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "bob@example.com", Password: "s3cret!"}, "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, access.RoleHost, user.Role)
		assert.False(t, user.RoleSelectionPending)
		assert.Equal(t, "/host/dashboard", access.LandingRoute(user.Role))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "bob@example.com", Password: "nope"}, "127.0.0.1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "who@example.com", Password: "s3cret!"}, "127.0.0.1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("oauth-only account", func(t *testing.T) {
		repo.add(&domain.User{Email: "oauth@example.com", Role: access.RoleGuest})
		_, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "oauth@example.com", Password: "anything"}, "127.0.0.1")
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("legacy bcrypt hash", func(t *testing.T) {
		legacy, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
		require.NoError(t, err)
		h := string(legacy)
		repo.add(&domain.User{Email: "legacy@example.com", PasswordHash: &h, Role: access.RoleGuest})

		user, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "legacy@example.com", Password: "old-pass"}, "127.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "legacy@example.com", user.Email)
	})

	t.Run("store failure", func(t *testing.T) {
		broken := newMockUserRepo()
		broken.err = errors.New("connection reset")
		_, err := NewAuthService(broken, nil, nil, testAuthConfig).
			SignIn(context.Background(), &domain.LoginRequest{Email: "bob@example.com", Password: "x"}, "127.0.0.1")
		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.NotContains(t, err.Error(), "invalid email or password")
	})
}

func TestSignInRateLimited(t *testing.T) {
	repo := newMockUserRepo()
	withPassword(t, repo, "bob@example.com", "s3cret!", access.RoleHost)
	svc := NewAuthService(repo, &mockRateLimiter{}, nil, testAuthConfig)

	req := func() error {
		_, err := svc.SignIn(context.Background(), &domain.LoginRequest{Email: "bob@example.com", Password: "wrong"}, "10.0.0.1")
		return err
	}
	for i := 0; i < testAuthConfig.LoginAttempts; i++ {
		assert.ErrorIs(t, req(), domain.ErrInvalidCredentials)
	}
	assert.ErrorIs(t, req(), domain.ErrRateLimited)
}

func TestCurrentUser(t *testing.T) {
	repo := newMockUserRepo()
	alice := repo.add(&domain.User{Email: "alice@example.com", Role: access.RoleGuest, RoleSelectionPending: true})
	svc := NewAuthService(repo, nil, nil, testAuthConfig)

	_, err := svc.CurrentUser(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	u, err := svc.CurrentUser(context.Background(), &auth.Claims{Sub: alice.ID})
	require.NoError(t, err)
	assert.True(t, u.RoleSelectionPending)

	u, err = svc.CurrentUser(context.Background(), &auth.Claims{Email: "ALICE@example.com"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	_, err = svc.CurrentUser(context.Background(), &auth.Claims{Sub: 99, Email: "gone@example.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
