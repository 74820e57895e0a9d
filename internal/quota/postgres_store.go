package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps quota records in the user_quotas table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ResetIfStale(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_quotas (user_id, generation_count, chat_count, last_reset_date, updated_at)
		 VALUES ($1, 0, 0, $2::date, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
		     generation_count = CASE WHEN user_quotas.last_reset_date < EXCLUDED.last_reset_date
		                             THEN 0 ELSE user_quotas.generation_count END,
		     chat_count       = CASE WHEN user_quotas.last_reset_date < EXCLUDED.last_reset_date
		                             THEN 0 ELSE user_quotas.chat_count END,
		     updated_at       = CASE WHEN user_quotas.last_reset_date < EXCLUDED.last_reset_date
		                             THEN NOW() ELSE user_quotas.updated_at END,
		     last_reset_date  = GREATEST(user_quotas.last_reset_date, EXCLUDED.last_reset_date)
		 RETURNING user_id, generation_count, chat_count, last_reset_date, updated_at`,
		userID, utcDay(day),
	).Scan(&rec.UserID, &rec.GenerationCount, &rec.ChatCount, &rec.LastResetDate, &rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("resetting user quota: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) Increment(ctx context.Context, userID uuid.UUID, kind Kind, day time.Time) (int, error) {
	var query string
	switch kind {
	case KindGeneration:
		query = `INSERT INTO user_quotas (user_id, generation_count, chat_count, last_reset_date, updated_at)
		         VALUES ($1, 1, 0, $2::date, NOW())
		         ON CONFLICT (user_id) DO UPDATE SET
		             generation_count = user_quotas.generation_count + 1,
		             updated_at = NOW()
		         RETURNING generation_count`
	case KindChat:
		query = `INSERT INTO user_quotas (user_id, generation_count, chat_count, last_reset_date, updated_at)
		         VALUES ($1, 0, 1, $2::date, NOW())
		         ON CONFLICT (user_id) DO UPDATE SET
		             chat_count = user_quotas.chat_count + 1,
		             updated_at = NOW()
		         RETURNING chat_count`
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, userID, utcDay(day)).Scan(&count); err != nil {
		return 0, fmt.Errorf("incrementing %s quota: %w", kind, err)
	}
	return count, nil
}
