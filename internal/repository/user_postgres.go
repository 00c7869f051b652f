package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/provalab/provahub-backend/internal/model"
)

// PostgresUserRepository is the pgx-backed account store.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create inserts a new account.
func (r *PostgresUserRepository) Create(ctx context.Context, u *model.User) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash,
	).Scan(&u.CreatedAt)
}

// GetByEmail retrieves an account by email.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx,
		`SELECT id, name, email, role, password_hash, created_at
		 FROM users WHERE email = $1`, email)
}

// GetByID retrieves an account by ID.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.get(ctx,
		`SELECT id, name, email, role, password_hash, created_at
		 FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) get(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
