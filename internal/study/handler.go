package study

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/api"
	"github.com/studyhub/studyhub/internal/auth"
	"github.com/studyhub/studyhub/internal/quota"
)

// rateLimitedRetryAfter is the Retry-After hint, in seconds, when the provider throttles us.
const rateLimitedRetryAfter = 30

// maxBodyBytes bounds request bodies; content itself is capped by validation.
const maxBodyBytes = 1 << 20

type Handler struct {
	svc      *Service
	validate *validator.Validate
	timeout  time.Duration
}

// NewHandler creates a Handler. Each generation runs under timeout; zero disables it.
func NewHandler(svc *Service, timeout time.Duration) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		timeout:  timeout,
	}
}

func (h *Handler) CreateNotes(w http.ResponseWriter, r *http.Request) {
	generate(h, w, r, h.svc.CreateStudyNotes)
}

func (h *Handler) CreateFlashcards(w http.ResponseWriter, r *http.Request) {
	generate(h, w, r, h.svc.CreateFlashcards)
}

func (h *Handler) CreateTree(w http.ResponseWriter, r *http.Request) {
	generate(h, w, r, h.svc.CreateKnowledgeTree)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	req.Content = strings.TrimSpace(req.Content)
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	resp, err := h.svc.Ask(ctx, auth.UserID(r.Context()), req)
	if err != nil {
		api.HandleError(w, toAppError(err))
		return
	}
	api.JSON(w, http.StatusOK, resp)
}

func generate[T any](h *Handler, w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, GenerateRequest) (T, error)) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	v, err := fn(ctx, auth.UserID(r.Context()), req)
	if err != nil {
		api.HandleError(w, toAppError(err))
		return
	}
	api.JSON(w, http.StatusOK, v)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.HandleError(w, api.NewError(http.StatusRequestEntityTooLarge, "too_large", "request body too large"))
			return false
		}
		api.HandleError(w, api.ErrBadRequest)
		return false
	}
	return true
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

func toAppError(err error) *api.AppError {
	var exceeded *quota.ExceededError
	switch {
	case errors.As(err, &exceeded):
		return api.NewError(http.StatusTooManyRequests, "quota_exceeded", exceeded.Error())
	case errors.Is(err, ErrUnauthorized):
		return api.ErrUnauthorized
	case errors.Is(err, ErrAPIKeyMissing):
		return api.NewError(http.StatusBadRequest, "api_key_missing",
			"no AI API key is configured; add your own key to continue")
	case errors.Is(err, ErrAPIKeyInvalid):
		return api.NewError(http.StatusBadRequest, "api_key_invalid",
			"the AI API key was rejected by the provider; check your key")
	case errors.Is(err, ErrRateLimited):
		appErr := api.NewError(http.StatusServiceUnavailable, "rate_limited",
			"the AI provider is busy; try again shortly")
		appErr.RetryAfter = rateLimitedRetryAfter
		return appErr
	case errors.Is(err, ErrGenerationFailed):
		return api.NewError(http.StatusBadGateway, "generation_failed",
			"the AI model did not return a usable result; try again")
	default:
		slog.Error("study request failed", "error", err)
		return api.ErrInternalServer
	}
}
