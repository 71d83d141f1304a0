package session

import (
	"context"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/pkg/auth"
	"github.com/diagnosis/supperclub/pkg/logger"
)

// Account is the role data the resolver needs from the identity store.
type Account struct {
	ID                   int64
	Email                string
	Name                 string
	Role                 access.Role
	RoleSelectionPending bool
}

// Accounts looks accounts up. A missing account is (nil, nil).
type Accounts interface {
	AccountByID(ctx context.Context, id int64) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
}

type Resolver struct {
	accounts Accounts
}

func NewResolver(accounts Accounts) *Resolver {
	return &Resolver{accounts: accounts}
}

// Refresh re-reads the account behind claims and returns claims carrying its
// current id, role and pending flag, plus whether anything changed. When the
// account cannot be read the previous claims are returned unchanged.
func (r *Resolver) Refresh(ctx context.Context, c *auth.Claims) (*auth.Claims, bool) {
	if r == nil || r.accounts == nil || c == nil {
		return c, false
	}

	acct, err := r.lookup(ctx, c)
	if err != nil {
		logger.WarnContext(ctx, "Session refresh failed, keeping previous claims",
			"error", err, "user_id", c.Sub)
		return c, false
	}
	if acct == nil {
		logger.WarnContext(ctx, "Session account not found, keeping previous claims",
			"user_id", c.Sub, "email", c.Email)
		return c, false
	}

	if acct.ID == c.Sub && string(acct.Role) == c.Role && acct.RoleSelectionPending == c.RoleSelectionPending {
		return c, false
	}

	next := *c
	next.Sub = acct.ID
	next.Role = string(acct.Role)
	next.RoleSelectionPending = acct.RoleSelectionPending
	return &next, true
}

func (r *Resolver) lookup(ctx context.Context, c *auth.Claims) (*Account, error) {
	if c.Sub != 0 {
		acct, err := r.accounts.AccountByID(ctx, c.Sub)
		if err != nil || acct != nil {
			return acct, err
		}
	}
	if c.Email == "" {
		return nil, nil
	}
	return r.accounts.AccountByEmail(ctx, c.Email)
}
