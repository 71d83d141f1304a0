package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/config"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/repository"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	SignIn(ctx context.Context, req *domain.LoginRequest, clientIP string) (*domain.User, error)
	SignOut(ctx context.Context, claims *auth.Claims)
	// CurrentUser reads the stored account behind a session.
	CurrentUser(ctx context.Context, claims *auth.Claims) (*domain.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	rateLimitRepo repository.RateLimitRepository
	publisher     events.Publisher
	config        config.AuthConfig
}

func NewAuthService(
	userRepo repository.UserRepository,
	rateLimitRepo repository.RateLimitRepository,
	publisher events.Publisher,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		rateLimitRepo: rateLimitRepo,
		publisher:     publisher,
		config:        cfg,
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existing, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", domain.ErrUpstream, err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, _ := access.ParseRole(req.Role)
	user, err := s.userRepo.Create(ctx, &domain.NewUser{
		Email:        req.Email,
		PasswordHash: &hash,
		Name:         req.Name,
		Phone:        req.Phone,
		Role:         role,
	})
	if errors.Is(err, domain.ErrEmailTaken) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create user: %v", domain.ErrUpstream, err)
	}

	logger.InfoContext(ctx, "User registered", "user_id", user.ID, "role", user.Role)
	publish(ctx, s.publisher, events.UserRegistered, events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		RegisteredAt: user.CreatedAt,
	})
	return user, nil
}

func (s *authService) SignIn(ctx context.Context, req *domain.LoginRequest, clientIP string) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.rateLimitRepo != nil {
		allowed, err := s.rateLimitRepo.Allow(ctx, "signin:"+clientIP+":"+req.Email, s.config.LoginAttempts, s.config.LoginWindow)
		if err != nil {
			logger.WarnContext(ctx, "Sign-in rate limit unavailable", "error", err)
		} else if !allowed {
			return nil, domain.ErrRateLimited
		}
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", domain.ErrUpstream, err)
	}
	if user == nil || user.PasswordHash == nil {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := auth.CheckPassword(req.Password, *user.PasswordHash)
	if err != nil {
		logger.WarnContext(ctx, "Stored password hash unusable", "user_id", user.ID, "error", err)
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	publish(ctx, s.publisher, events.UserSignedIn, events.UserSignedInEvent{
		UserID:     user.ID,
		Email:      user.Email,
		Method:     "credentials",
		SignedInAt: time.Now().UTC(),
	})
	return user, nil
}

func (s *authService) SignOut(ctx context.Context, claims *auth.Claims) {
	if claims == nil {
		return
	}
	publish(ctx, s.publisher, events.UserSignedOut, events.UserSignedOutEvent{
		UserID:      claims.Sub,
		SessionID:   claims.ID,
		SignedOutAt: time.Now().UTC(),
	})
}

func (s *authService) CurrentUser(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	if claims == nil {
		return nil, domain.ErrUnauthorized
	}
	user, err := findSessionUser(ctx, s.userRepo, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: find user: %v", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// findSessionUser looks the session's account up by id, then by email for
// sessions issued before the id was known.
func findSessionUser(ctx context.Context, repo repository.UserRepository, claims *auth.Claims) (*domain.User, error) {
	if claims.Sub != 0 {
		user, err := repo.FindByID(ctx, claims.Sub)
		if err != nil || user != nil {
			return user, err
		}
	}
	if claims.Email == "" {
		return nil, nil
	}
	return repo.FindByEmail(ctx, domain.NormalizeEmail(claims.Email))
}

// publish sends an event without failing the caller; identity changes are
// already committed by the time events go out.
func publish(ctx context.Context, p events.Publisher, subject string, ev interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
