package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/metrics"
	"github.com/studyhub/studyhub/internal/users"
)

// UserFinder resolves the subscription tier of a user. GetByID returns nil, nil
// for unknown users.
type UserFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Service enforces the daily per-user generation and chat limits.
type Service struct {
	store  Store
	users  UserFinder
	limits map[users.Tier]Limits
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, which decides the current UTC day.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new quota Service.
func NewService(store Store, finder UserFinder, cfg config.QuotaConfig, opts ...Option) *Service {
	s := &Service{
		store: store,
		users: finder,
		limits: map[users.Tier]Limits{
			users.TierFree:    {Generation: cfg.FreeGenerationLimit, Chat: cfg.FreeChatLimit},
			users.TierPremium: {Generation: cfg.PremiumGenerationLimit, Chat: cfg.PremiumChatLimit},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckQuota returns nil when the user may perform one more action of kind today.
// It fails with ErrUserNotFound or *ExceededError. Storage errors fail the check.
// Nothing is reserved: requests in flight at limit-1 may each increment afterwards,
// so the stored count can pass the limit by the number of concurrent requests.
func (s *Service) CheckQuota(ctx context.Context, userID uuid.UUID, kind Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	user, err := s.lookup(ctx, userID)
	if err != nil {
		return err
	}

	rec, err := s.store.ResetIfStale(ctx, userID, s.today())
	if err != nil {
		return fmt.Errorf("checking quota: %w", err)
	}

	tier := user.Tier()
	limit := s.limits[tier].For(kind)
	if used := rec.Count(kind); used >= limit {
		metrics.QuotaRejectionsTotal.WithLabelValues(string(kind), string(tier)).Inc()
		slog.Info("quota: daily limit reached",
			"user_id", userID, "kind", kind, "tier", tier, "used", used, "limit", limit)
		return &ExceededError{Kind: kind, Tier: tier, Limit: limit, Used: used}
	}

	return nil
}

// IncrementQuota records one successful action of kind.
func (s *Service) IncrementQuota(ctx context.Context, userID uuid.UUID, kind Kind) error {
	count, err := s.store.Increment(ctx, userID, kind, s.today())
	if err != nil {
		return err
	}
	slog.Debug("quota: incremented", "user_id", userID, "kind", kind, "count", count)
	return nil
}

// GetQuota returns the user's current quota status for API display.
func (s *Service) GetQuota(ctx context.Context, userID uuid.UUID) (*Status, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	rec, err := s.store.ResetIfStale(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("getting quota: %w", err)
	}

	limits := s.limits[user.Tier()]
	return &Status{
		Tier:       user.Tier(),
		Generation: newUsage(rec.GenerationCount, limits.Generation),
		Chat:       newUsage(rec.ChatCount, limits.Chat),
		ResetDate:  rec.LastResetDate.Format(dateLayout),
		ResetsAt:   today.AddDate(0, 0, 1),
	}, nil
}

func (s *Service) lookup(ctx context.Context, userID uuid.UUID) (*users.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) today() time.Time {
	return utcDay(s.now())
}
