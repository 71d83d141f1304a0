package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/oauth"
	"github.com/diagnosis/supperclub/services/auth/internal/repository"
	"github.com/google/uuid"
)

type OAuthService interface {
	// Begin records a one-time state and returns the provider consent URL.
	Begin(ctx context.Context, returnTo string) (string, error)
	// Complete finishes a provider callback and returns the signed-in user
	// along with the path recorded by Begin.
	Complete(ctx context.Context, state, code string) (*domain.User, string, error)
	Provision(ctx context.Context, p *oauth.Profile) (*domain.User, error)
}

type oauthService struct {
	provider  oauth.Provider
	states    repository.StateRepository
	userRepo  repository.UserRepository
	publisher events.Publisher
	stateTTL  time.Duration
}

func NewOAuthService(
	provider oauth.Provider,
	states repository.StateRepository,
	userRepo repository.UserRepository,
	publisher events.Publisher,
	stateTTL time.Duration,
) OAuthService {
	return &oauthService{
		provider:  provider,
		states:    states,
		userRepo:  userRepo,
		publisher: publisher,
		stateTTL:  stateTTL,
	}
}

func (s *oauthService) Begin(ctx context.Context, returnTo string) (string, error) {
	state := uuid.NewString()
	if err := s.states.Save(ctx, state, SafeReturnTo(returnTo), s.stateTTL); err != nil {
		return "", fmt.Errorf("%w: save oauth state: %v", domain.ErrUpstream, err)
	}
	return s.provider.AuthCodeURL(state), nil
}

func (s *oauthService) Complete(ctx context.Context, state, code string) (*domain.User, string, error) {
	returnTo, ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, "", fmt.Errorf("%w: consume oauth state: %v", domain.ErrUpstream, err)
	}
	if !ok || code == "" {
		return nil, "", domain.ErrInvalidState
	}

	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("%s sign-in: %w", s.provider.Name(), err)
	}

	user, err := s.Provision(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	publish(ctx, s.publisher, events.UserSignedIn, events.UserSignedInEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Method:     s.provider.Name(),
		SignedInAt: time.Now().UTC(),
	})
	return user, returnTo, nil
}

// Provision finds the account for an external profile, creating it on first
// sign-in as a guest that still has to choose a role. Existing accounts are
// returned untouched.
func (s *oauthService) Provision(ctx context.Context, p *oauth.Profile) (*domain.User, error) {
	email := domain.NormalizeEmail(p.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: profile has no email", domain.ErrValidation)
	}
	// an unverified address must not sign in to an account that owns it
	if !p.EmailVerified {
		return nil, fmt.Errorf("%w: %s email not verified", domain.ErrValidation, s.provider.Name())
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", domain.ErrUpstream, err)
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	user, err := s.userRepo.Create(ctx, &domain.NewUser{
		Email:                email,
		Name:                 strings.TrimSpace(p.Name),
		Image:                p.Picture,
		Role:                 access.RoleGuest,
		RoleSelectionPending: true,
		EmailVerifiedAt:      &now,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		// lost a race with a concurrent first sign-in
		existing, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("%w: find user after conflict: %v", domain.ErrUpstream, err)
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: user vanished after email conflict", domain.ErrUpstream)
		}
		return existing, nil
	}
	if err != nil {
		logger.ErrorContext(ctx, "Failed to provision user", "error", err)
		return nil, fmt.Errorf("%w: create user: %v", domain.ErrUpstream, err)
	}

	logger.InfoContext(ctx, "User provisioned", "user_id", user.ID, "provider", s.provider.Name())
	publish(ctx, s.publisher, events.UserProvisioned, events.UserProvisionedEvent{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Provider:      s.provider.Name(),
		ProvisionedAt: now,
	})
	return user, nil
}

// SafeReturnTo keeps only same-site absolute paths. Control characters and
// backslashes are refused outright since browsers strip or rewrite them.
func SafeReturnTo(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return ""
	}
	for i := 0; i < len(p); i++ {
		if c := p[i]; c < 0x20 || c == 0x7f || c == '\\' {
			return ""
		}
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return p
}
