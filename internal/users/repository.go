package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateCredentials(ctx context.Context, id uuid.UUID, encryptedAPIKey, model string) error
	ClearCredentials(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT id, email, is_premium, encrypted_api_key, preferred_model, created_at, updated_at
		FROM users WHERE id = $1`

	user := &User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.IsPremium, &user.EncryptedAPIKey, &user.PreferredModel,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) UpdateCredentials(ctx context.Context, id uuid.UUID, encryptedAPIKey, model string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET encrypted_api_key = $2, preferred_model = $3, updated_at = NOW() WHERE id = $1`,
		id, encryptedAPIKey, model)
	if err != nil {
		return fmt.Errorf("updating user credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *postgresRepository) ClearCredentials(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET encrypted_api_key = '', preferred_model = '', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("clearing user credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
