package repository

import (
	"context"
	"errors"
	"time"

	"github.com/diagnosis/supperclub/pkg/access"
	"github.com/diagnosis/supperclub/services/auth/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.NewUser) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// SelectRole sets the role and clears the pending flag. A missing user
	// is (nil, nil).
	SelectRole(ctx context.Context, id int64, role access.Role) (*domain.User, error)
	SelectRoleByEmail(ctx context.Context, email string, role access.Role) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, email, password_hash, name, phone, image, role, role_selection_pending, email_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Phone, &u.Image,
		&u.Role, &u.RoleSelectionPending, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, nu *domain.NewUser) (*domain.User, error) {
	const q = `
		INSERT INTO users (email, password_hash, name, phone, image, role, role_selection_pending, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q,
		nu.Email, nu.PasswordHash, nu.Name, nu.Phone, nu.Image, nu.Role, nu.RoleSelectionPending, nu.EmailVerifiedAt,
	))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return nil, domain.ErrEmailTaken
	}
	return u, err
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, email))
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *userRepository) SelectRole(ctx context.Context, id int64, role access.Role) (*domain.User, error) {
	const q = `
		UPDATE users
		SET role = $2, role_selection_pending = false, updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, id, role))
}

func (r *userRepository) SelectRoleByEmail(ctx context.Context, email string, role access.Role) (*domain.User, error) {
	const q = `
		UPDATE users
		SET role = $2, role_selection_pending = false, updated_at = now()
		WHERE email = $1
		RETURNING ` + userCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q, email, role))
}
