package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyhub/studyhub/internal/database"
	mw "github.com/studyhub/studyhub/internal/middleware"
	inats "github.com/studyhub/studyhub/internal/nats"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Study handlers
	CreateNotes      http.HandlerFunc
	CreateFlashcards http.HandlerFunc
	CreateTree       http.HandlerFunc
	Ask              http.HandlerFunc

	// Quota and activity
	GetQuota     http.HandlerFunc
	ListActivity http.HandlerFunc

	// Personal AI credentials
	GetCredentials    http.HandlerFunc
	UpdateCredentials http.HandlerFunc
	DeleteCredentials http.HandlerFunc

	AuthMiddleware func(http.Handler) http.Handler
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	// StudyRateLimiter throttles the generation routes. Nil disables it.
	StudyRateLimiter func(http.Handler) http.Handler
}

func NewRouter(pool *pgxpool.Pool, natsClient *inats.Client, cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		// Events are best effort: a broken NATS link degrades but does not fail readiness.
		if natsClient == nil {
			health["nats"] = "not configured"
		} else if !natsClient.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Route("/study", func(r chi.Router) {
				if cfg.StudyRateLimiter != nil {
					r.Use(cfg.StudyRateLimiter)
				}
				r.Post("/notes", h.CreateNotes)
				r.Post("/flashcards", h.CreateFlashcards)
				r.Post("/tree", h.CreateTree)
				r.Post("/ask", h.Ask)
			})

			r.Get("/quota", h.GetQuota)
			r.Get("/activity", h.ListActivity)

			r.Route("/me/ai-credentials", func(r chi.Router) {
				r.Get("/", h.GetCredentials)
				r.Put("/", h.UpdateCredentials)
				r.Delete("/", h.DeleteCredentials)
			})
		})
	})

	return r
}
