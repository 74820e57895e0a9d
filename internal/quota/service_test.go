package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/users"
)

type stubUsers map[uuid.UUID]*users.User

func (s stubUsers) GetByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	return s[id], nil
}

var testLimits = config.QuotaConfig{
	FreeGenerationLimit:    3,
	FreeChatLimit:          5,
	PremiumGenerationLimit: 10,
	PremiumChatLimit:       50,
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestService(t *testing.T, us stubUsers) (*Service, *clock) {
	t.Helper()
	rdb, _ := setupMiniredis(t)
	clk := &clock{now: day1}
	return NewService(NewRedisStore(rdb), us, testLimits, WithClock(clk.Now)), clk
}

func TestCheckQuota_FreshUserAllowed(t *testing.T) {
	free := &users.User{ID: uuid.New()}
	svc, _ := newTestService(t, stubUsers{free.ID: free})

	require.NoError(t, svc.CheckQuota(context.Background(), free.ID, KindGeneration))
	require.NoError(t, svc.CheckQuota(context.Background(), free.ID, KindChat))
}

func TestCheckQuota_UserNotFound(t *testing.T) {
	svc, _ := newTestService(t, stubUsers{})

	err := svc.CheckQuota(context.Background(), uuid.New(), KindGeneration)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCheckQuota_LimitBoundary(t *testing.T) {
	ctx := context.Background()
	free := &users.User{ID: uuid.New()}
	premium := &users.User{ID: uuid.New(), IsPremium: true}
	svc, _ := newTestService(t, stubUsers{free.ID: free, premium.ID: premium})

	cases := []struct {
		name  string
		user  *users.User
		kind  Kind
		limit int
		tier  users.Tier
	}{
		{"free generation", free, KindGeneration, 3, users.TierFree},
		{"free chat", free, KindChat, 5, users.TierFree},
		{"premium generation", premium, KindGeneration, 10, users.TierPremium},
		{"premium chat", premium, KindChat, 50, users.TierPremium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < tc.limit-1; i++ {
				require.NoError(t, svc.IncrementQuota(ctx, tc.user.ID, tc.kind))
			}
			// count = limit-1 still passes
			require.NoError(t, svc.CheckQuota(ctx, tc.user.ID, tc.kind))

			require.NoError(t, svc.IncrementQuota(ctx, tc.user.ID, tc.kind))
			err := svc.CheckQuota(ctx, tc.user.ID, tc.kind)

			var exceeded *ExceededError
			require.True(t, errors.As(err, &exceeded), "expected ExceededError, got %v", err)
			assert.Equal(t, tc.limit, exceeded.Limit)
			assert.Equal(t, tc.tier, exceeded.Tier)
			assert.Contains(t, err.Error(), string(tc.tier))
		})
	}
}

func TestCheckQuota_CountersAreIndependent(t *testing.T) {
	ctx := context.Background()
	free := &users.User{ID: uuid.New()}
	svc, _ := newTestService(t, stubUsers{free.ID: free})

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.IncrementQuota(ctx, free.ID, KindGeneration))
	}

	assert.Error(t, svc.CheckQuota(ctx, free.ID, KindGeneration))
	assert.NoError(t, svc.CheckQuota(ctx, free.ID, KindChat))

	status, err := svc.GetQuota(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Generation.Used)
	assert.Equal(t, 0, status.Generation.Remaining)
	assert.Equal(t, 0, status.Chat.Used)
	assert.Equal(t, 5, status.Chat.Remaining)
}

func TestCheckQuota_ResetsOnNewUTCDay(t *testing.T) {
	ctx := context.Background()
	free := &users.User{ID: uuid.New()}
	svc, clk := newTestService(t, stubUsers{free.ID: free})

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.IncrementQuota(ctx, free.ID, KindGeneration))
	}
	require.Error(t, svc.CheckQuota(ctx, free.ID, KindGeneration))

	clk.Set(day2)
	require.NoError(t, svc.CheckQuota(ctx, free.ID, KindGeneration))

	status, err := svc.GetQuota(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Generation.Used)
	assert.Equal(t, "2026-03-15", status.ResetDate)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), status.ResetsAt)
}

func TestIncrementQuota_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	premium := &users.User{ID: uuid.New(), IsPremium: true}
	svc, _ := newTestService(t, stubUsers{premium.ID: premium})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, svc.IncrementQuota(ctx, premium.ID, KindChat))
		}()
	}
	wg.Wait()

	status, err := svc.GetQuota(ctx, premium.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, status.Chat.Used)
	assert.Equal(t, 0, status.Generation.Used)
}

func TestCheckQuota_InFlightOvershootIsBounded(t *testing.T) {
	ctx := context.Background()
	free := &users.User{ID: uuid.New()}
	svc, _ := newTestService(t, stubUsers{free.ID: free})

	for i := 0; i < testLimits.FreeGenerationLimit-1; i++ {
		require.NoError(t, svc.IncrementQuota(ctx, free.ID, KindGeneration))
	}

	// Two requests pass the check before either finishes.
	require.NoError(t, svc.CheckQuota(ctx, free.ID, KindGeneration))
	require.NoError(t, svc.CheckQuota(ctx, free.ID, KindGeneration))
	require.NoError(t, svc.IncrementQuota(ctx, free.ID, KindGeneration))
	require.NoError(t, svc.IncrementQuota(ctx, free.ID, KindGeneration))

	status, err := svc.GetQuota(ctx, free.ID)
	require.NoError(t, err)
	assert.Equal(t, testLimits.FreeGenerationLimit+1, status.Generation.Used)
	assert.Equal(t, 0, status.Generation.Remaining)

	var exceeded *ExceededError
	assert.ErrorAs(t, svc.CheckQuota(ctx, free.ID, KindGeneration), &exceeded)
}

func TestCheckQuota_UnknownKind(t *testing.T) {
	free := &users.User{ID: uuid.New()}
	svc, _ := newTestService(t, stubUsers{free.ID: free})

	err := svc.CheckQuota(context.Background(), free.ID, Kind("upload"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestExceededError_Message(t *testing.T) {
	gen := &ExceededError{Kind: KindGeneration, Tier: users.TierFree, Limit: 5}
	assert.Equal(t, "daily AI generation limit reached: 5 generations per day on the free plan", gen.Error())

	chat := &ExceededError{Kind: KindChat, Tier: users.TierPremium, Limit: 500}
	assert.Equal(t, "daily AI chat limit reached: 500 messages per day on the premium plan", chat.Error())
}
