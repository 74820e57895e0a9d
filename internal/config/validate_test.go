package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "studyhub",
			Password: "secret", Name: "studyhub", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			AccessSecret: "access-secret-that-is-at-least-32-chars!",
			Issuer:       "studyhub",
		},
		Encryption: EncryptionConfig{Key: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"},
		AI: AIConfig{
			APIKey:            "sk-test",
			MaxRetries:        3,
			RepairConcurrency: 1,
			RepairBudget:      30 * time.Second,
		},
		Quota: QuotaConfig{
			Store:                  "postgres",
			FreeGenerationLimit:    5,
			FreeChatLimit:          20,
			PremiumGenerationLimit: 100,
			PremiumChatLimit:       500,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_MissingAPIKeyIsNotFatal(t *testing.T) {
	cfg := validConfig()
	cfg.AI.APIKey = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_JWTAccessSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_ACCESS_SECRET") {
		t.Fatalf("expected JWT_ACCESS_SECRET error, got: %v", err)
	}
}

func TestValidate_EncryptionKeyRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Encryption.Key = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ENCRYPTION_KEY is required") {
		t.Fatalf("expected ENCRYPTION_KEY required error, got: %v", err)
	}
}

func TestValidate_EncryptionKeyWrongLength(t *testing.T) {
	cfg := validConfig()
	cfg.Encryption.Key = "tooshort"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "64 hex characters") {
		t.Fatalf("expected 64 hex characters error, got: %v", err)
	}
}

func TestValidate_EncryptionKeyInvalidHex(t *testing.T) {
	cfg := validConfig()
	cfg.Encryption.Key = "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "valid hex") {
		t.Fatalf("expected valid hex error, got: %v", err)
	}
}

func TestValidate_QuotaStore(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.Store = "memcached"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "QUOTA_STORE") {
		t.Fatalf("expected QUOTA_STORE error, got: %v", err)
	}

	cfg.Quota.Store = "redis"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected redis store to be accepted, got: %v", err)
	}
}

func TestValidate_NegativeQuotaLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.PremiumChatLimit = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "QUOTA_PREMIUM_CHAT_LIMIT") {
		t.Fatalf("expected QUOTA_PREMIUM_CHAT_LIMIT error, got: %v", err)
	}
}

func TestValidate_RepairConcurrency(t *testing.T) {
	cfg := validConfig()
	cfg.AI.RepairConcurrency = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_REPAIR_CONCURRENCY") {
		t.Fatalf("expected AI_REPAIR_CONCURRENCY error, got: %v", err)
	}
}

func TestValidate_InvalidPorts(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.DB.Port = 99999
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected port validation errors")
	}
	if !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Errorf("expected SERVER_PORT error in: %v", err)
	}
	if !strings.Contains(err.Error(), "DB_PORT") {
		t.Errorf("expected DB_PORT error in: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 0},
		DB:     DBConfig{Port: 5432},
		Redis:  RedisConfig{Port: 6379},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"JWT_ACCESS_SECRET", "ENCRYPTION_KEY", "DB_PASSWORD", "SERVER_PORT", "QUOTA_STORE", "AI_REPAIR_CONCURRENCY"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}

func TestValidate_NegativeRepairRate(t *testing.T) {
	cfg := validConfig()
	cfg.AI.RepairRate = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "AI_REPAIR_RATE") {
		t.Fatalf("expected AI_REPAIR_RATE error, got: %v", err)
	}
}
