package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	AI         AIConfig
	Quota      QuotaConfig
	RateLimit  RateLimitConfig
	CORS       CORSConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables generation events.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type EncryptionConfig struct {
	Key string
}

// AIConfig holds the process-wide model defaults and pipeline tuning.
type AIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration

	MaxRetries        int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	RepairBudget      time.Duration
	RepairConcurrency int
	RepairRate        float64
}

// QuotaConfig holds the daily limits per subscription tier.
type QuotaConfig struct {
	Store                  string
	FreeGenerationLimit    int
	FreeChatLimit          int
	PremiumGenerationLimit int
	PremiumChatLimit       int
}

type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
			Issuer:       k.String("jwt.issuer"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		AI: AIConfig{
			APIKey:            k.String("ai.api.key"),
			Model:             k.String("ai.model"),
			BaseURL:           k.String("ai.base.url"),
			Temperature:       k.Float64("ai.temperature"),
			MaxTokens:         k.Int("ai.max.tokens"),
			MaxRetries:        k.Int("ai.max.retries"),
			RepairConcurrency: k.Int("ai.repair.concurrency"),
			RepairRate:        k.Float64("ai.repair.rate"),
		},
		Quota: QuotaConfig{
			Store:                  k.String("quota.store"),
			FreeGenerationLimit:    k.Int("quota.free.generation.limit"),
			FreeChatLimit:          k.Int("quota.free.chat.limit"),
			PremiumGenerationLimit: k.Int("quota.premium.generation.limit"),
			PremiumChatLimit:       k.Int("quota.premium.chat.limit"),
		},
		RateLimit: RateLimitConfig{
			Requests:  k.Int("ratelimit.requests"),
			WindowSec: k.Int("ratelimit.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	// Apply defaults. Keys where zero is meaningful are only defaulted when unset.
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "studyhub"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "studyhub"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "studyhub"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 4096
	}
	if !k.Exists("ai.temperature") {
		cfg.AI.Temperature = 0.4
	}
	if !k.Exists("ai.max.retries") {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.RepairConcurrency == 0 {
		cfg.AI.RepairConcurrency = 1
	}
	if !k.Exists("ai.repair.rate") {
		cfg.AI.RepairRate = 5
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = "postgres"
	}
	if cfg.Quota.FreeGenerationLimit == 0 {
		cfg.Quota.FreeGenerationLimit = 5
	}
	if cfg.Quota.FreeChatLimit == 0 {
		cfg.Quota.FreeChatLimit = 20
	}
	if cfg.Quota.PremiumGenerationLimit == 0 {
		cfg.Quota.PremiumGenerationLimit = 100
	}
	if cfg.Quota.PremiumChatLimit == 0 {
		cfg.Quota.PremiumChatLimit = 500
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 60
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"server.read.timeout", "15s", &cfg.Server.ReadTimeout},
		{"server.write.timeout", "120s", &cfg.Server.WriteTimeout},
		{"ai.request.timeout", "90s", &cfg.AI.RequestTimeout},
		{"ai.retry.initial.delay", "500ms", &cfg.AI.RetryInitialDelay},
		{"ai.retry.max.delay", "8s", &cfg.AI.RetryMaxDelay},
		{"ai.repair.budget", "30s", &cfg.AI.RepairBudget},
	}
	for _, d := range durations {
		raw := k.String(d.key)
		if raw == "" {
			raw = d.def
		}
		*d.dest, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", d.key, err)
		}
	}

	return cfg, nil
}
