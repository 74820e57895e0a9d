package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "quota:daily:"

// resetScript zeroes both counters when the stored day is missing or older than ARGV[1].
// ISO dates compare correctly as strings.
var resetScript = redis.NewScript(`
local last = redis.call('HGET', KEYS[1], 'last_reset_date')
if (not last) or last < ARGV[1] then
  redis.call('HSET', KEYS[1], 'generation_count', 0, 'chat_count', 0,
             'last_reset_date', ARGV[1], 'updated_at', ARGV[2])
end
return redis.call('HMGET', KEYS[1], 'generation_count', 'chat_count', 'last_reset_date', 'updated_at')
`)

var incrementScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'last_reset_date', ARGV[1]) == 1 then
  redis.call('HSET', KEYS[1], 'generation_count', 0, 'chat_count', 0)
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
`)

// RedisStore keeps one hash per user. Both operations run as Lua scripts so each is atomic.
type RedisStore struct {
	rdb redis.Scripter
}

func NewRedisStore(rdb redis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) ResetIfStale(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error) {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	vals, err := resetScript.Run(ctx, s.rdb, []string{redisKeyPrefix + userID.String()},
		utcDay(day).Format(dateLayout), now).Slice()
	if err != nil {
		return nil, fmt.Errorf("resetting user quota: %w", err)
	}
	rec, err := parseRecord(userID, vals)
	if err != nil {
		return nil, fmt.Errorf("decoding user quota: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Increment(ctx context.Context, userID uuid.UUID, kind Kind, day time.Time) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	field := string(kind) + "_count"
	now := strconv.FormatInt(time.Now().Unix(), 10)
	count, err := incrementScript.Run(ctx, s.rdb, []string{redisKeyPrefix + userID.String()},
		utcDay(day).Format(dateLayout), field, now).Int()
	if err != nil {
		return 0, fmt.Errorf("incrementing %s quota: %w", kind, err)
	}
	return count, nil
}

func parseRecord(userID uuid.UUID, vals []interface{}) (*Record, error) {
	if len(vals) != 4 {
		return nil, fmt.Errorf("expected 4 fields, got %d", len(vals))
	}
	field := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	rec := &Record{UserID: userID}
	var err error
	if rec.GenerationCount, err = strconv.Atoi(field(0)); err != nil {
		return nil, fmt.Errorf("generation_count: %w", err)
	}
	if rec.ChatCount, err = strconv.Atoi(field(1)); err != nil {
		return nil, fmt.Errorf("chat_count: %w", err)
	}
	if rec.LastResetDate, err = time.Parse(dateLayout, field(2)); err != nil {
		return nil, fmt.Errorf("last_reset_date: %w", err)
	}
	if ts, err := strconv.ParseInt(field(3), 10, 64); err == nil {
		rec.UpdatedAt = time.Unix(ts, 0).UTC()
	}
	return rec, nil
}
