package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/diagnosis/supperclub/pkg/session"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository is the gateway's read-only view of users, enough to
// keep session roles current.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountCols = `id, email, name, role, role_selection_pending`

func scanAccount(row pgx.Row) (*session.Account, error) {
	var a session.Account
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &a.Role, &a.RoleSelectionPending); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) AccountByID(ctx context.Context, id int64) (*session.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM users WHERE id = $1`, id))
}

func (r *AccountRepository) AccountByEmail(ctx context.Context, email string) (*session.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM users WHERE email = $1`, email))
}
