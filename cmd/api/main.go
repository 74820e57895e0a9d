package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/studyhub/studyhub/internal/api"
	"github.com/studyhub/studyhub/internal/audit"
	"github.com/studyhub/studyhub/internal/auth"
	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/database"
	"github.com/studyhub/studyhub/internal/llm"
	mw "github.com/studyhub/studyhub/internal/middleware"
	inats "github.com/studyhub/studyhub/internal/nats"
	"github.com/studyhub/studyhub/internal/quota"
	iredis "github.com/studyhub/studyhub/internal/redis"
	"github.com/studyhub/studyhub/internal/server"
	"github.com/studyhub/studyhub/internal/study"
	"github.com/studyhub/studyhub/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Migrations
	if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *inats.Client
	var events study.EventPublisher
	if cfg.NATS.URL != "" {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		events = inats.NewPublisher(natsClient.JetStream())
	} else {
		slog.Warn("NATS_URL not set, generation events are disabled")
	}

	// Users
	encryptor, err := auth.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating encryptor", "error", err)
		os.Exit(1)
	}
	userSvc := users.NewService(users.NewRepository(pool), encryptor)
	userHandler := users.NewHandler(userSvc)

	// Quota
	var quotaStore quota.Store
	switch cfg.Quota.Store {
	case "redis":
		quotaStore = quota.NewRedisStore(redisClient)
	default:
		quotaStore = quota.NewPostgresStore(pool)
	}
	slog.Info("quota store selected", "store", cfg.Quota.Store)
	quotaSvc := quota.NewService(quotaStore, userSvc, cfg.Quota)
	quotaHandler := quota.NewHandler(quotaSvc)

	// Study pipeline
	provider := llm.NewProvider(cfg.AI)
	generator := study.NewGenerator(provider, study.GeneratorConfigFromAI(cfg.AI))
	studySvc := study.NewService(generator, quotaSvc, userSvc, events)
	studyHandler := study.NewHandler(studySvc, cfg.AI.RequestTimeout)

	// Activity
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if natsClient != nil {
		consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Auth
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.Issuer)
	studyLimiter := mw.NewRateLimiter(redisClient, "study", cfg.RateLimit.Requests, cfg.RateLimit.WindowSec, auth.RateLimitKey)

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		StudyRateLimiter:   studyLimiter.Middleware,
	}, api.HandlerSet{
		CreateNotes:      studyHandler.CreateNotes,
		CreateFlashcards: studyHandler.CreateFlashcards,
		CreateTree:       studyHandler.CreateTree,
		Ask:              studyHandler.Ask,

		GetQuota:     quotaHandler.Get,
		ListActivity: auditHandler.List,

		GetCredentials:    userHandler.GetCredentials,
		UpdateCredentials: userHandler.UpdateCredentials,
		DeleteCredentials: userHandler.DeleteCredentials,

		AuthMiddleware: auth.Middleware(jwtManager),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
