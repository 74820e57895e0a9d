package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/api"
	"github.com/studyhub/studyhub/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	user, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		slog.Error("fetching user", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if user == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	api.JSON(w, http.StatusOK, CredentialsResponse{
		HasOwnKey:      user.HasOwnKey(),
		PreferredModel: user.PreferredModel,
	})
}

func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req UpdateCredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	if err := h.svc.SaveCredentials(r.Context(), userID, req); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}
		slog.Error("saving user credentials", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, CredentialsResponse{HasOwnKey: true, PreferredModel: req.Model})
}

func (h *Handler) DeleteCredentials(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.svc.ClearCredentials(r.Context(), userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}
		slog.Error("clearing user credentials", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONMessage(w, http.StatusOK, "api key removed")
}
