package service

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/events"
	"github.com/diagnosis/supperclub/pkg/logger"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/diagnosis/supperclub/services/auth/internal/repository"
)

type RoleService interface {
	// SelectRole records the signed-in user's choice of role and clears
	// the pending flag. Selecting the current role again is a no-op.
	SelectRole(ctx context.Context, claims *auth.Claims, role string) (*domain.User, error)
}

type roleService struct {
	userRepo  repository.UserRepository
	publisher events.Publisher
}

func NewRoleService(userRepo repository.UserRepository, publisher events.Publisher) RoleService {
	return &roleService{userRepo: userRepo, publisher: publisher}
}

func (s *roleService) SelectRole(ctx context.Context, claims *auth.Claims, raw string) (*domain.User, error) {
	if claims == nil {
		return nil, domain.ErrUnauthorized
	}
	role, ok := access.ParseRole(raw)
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	var (
		user *domain.User
		err  error
	)
	if claims.Sub != 0 {
		user, err = s.userRepo.SelectRole(ctx, claims.Sub, role)
	}
	if err == nil && user == nil && claims.Email != "" {
		user, err = s.userRepo.SelectRoleByEmail(ctx, domain.NormalizeEmail(claims.Email), role)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update role: %v", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}

	if claims.RoleSelectionPending || claims.Role != string(role) {
		logger.InfoContext(ctx, "Role selected", "user_id", user.ID, "role", role, "previous_role", claims.Role)
		publish(ctx, s.publisher, events.UserRoleSelected, events.UserRoleSelectedEvent{
			UserID:       user.ID,
			Email:        user.Email,
			Name:         user.Name,
			Role:         string(role),
			PreviousRole: claims.Role,
			SelectedAt:   time.Now().UTC(),
		})
	}
	return user, nil
}
