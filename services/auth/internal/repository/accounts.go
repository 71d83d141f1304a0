package repository

import (
	"context"

	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
)

// SessionAccounts lets the session resolver read role data from users.
type SessionAccounts struct {
	Users UserRepository
}

func (a SessionAccounts) AccountByID(ctx context.Context, id int64) (*session.Account, error) {
	u, err := a.Users.FindByID(ctx, id)
	return toAccount(u), err
}

func (a SessionAccounts) AccountByEmail(ctx context.Context, email string) (*session.Account, error) {
	u, err := a.Users.FindByEmail(ctx, domain.NormalizeEmail(email))
	return toAccount(u), err
}

func toAccount(u *domain.User) *session.Account {
	if u == nil {
		return nil
	}
	return &session.Account{
		ID:                   u.ID,
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 u.Role,
		RoleSelectionPending: u.RoleSelectionPending,
	}
}
