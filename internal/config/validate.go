package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}

	// Encryption key: must be exactly 64 hex chars (32 bytes)
	if c.Encryption.Key == "" {
		errs = append(errs, "ENCRYPTION_KEY is required")
	} else if len(c.Encryption.Key) != 64 {
		errs = append(errs, "ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		errs = append(errs, "ENCRYPTION_KEY must be valid hex")
	}

	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	switch c.Quota.Store {
	case "postgres", "redis":
	default:
		errs = append(errs, fmt.Sprintf("QUOTA_STORE must be postgres or redis, got %q", c.Quota.Store))
	}
	for _, l := range []struct {
		name  string
		value int
	}{
		{"QUOTA_FREE_GENERATION_LIMIT", c.Quota.FreeGenerationLimit},
		{"QUOTA_FREE_CHAT_LIMIT", c.Quota.FreeChatLimit},
		{"QUOTA_PREMIUM_GENERATION_LIMIT", c.Quota.PremiumGenerationLimit},
		{"QUOTA_PREMIUM_CHAT_LIMIT", c.Quota.PremiumChatLimit},
	} {
		if l.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must not be negative, got %d", l.name, l.value))
		}
	}

	if c.AI.MaxRetries < 0 {
		errs = append(errs, fmt.Sprintf("AI_MAX_RETRIES must not be negative, got %d", c.AI.MaxRetries))
	}
	if c.AI.RepairRate < 0 {
		errs = append(errs, fmt.Sprintf("AI_REPAIR_RATE must not be negative, got %g", c.AI.RepairRate))
	}
	if c.AI.RepairConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("AI_REPAIR_CONCURRENCY must be at least 1, got %d", c.AI.RepairConcurrency))
	}

	// Process-wide model key: warn only, users may bring their own
	if c.AI.APIKey == "" {
		slog.Warn("AI_API_KEY is empty, generation requires a per-user or per-request key")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
