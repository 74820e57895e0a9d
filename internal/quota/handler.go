package quota

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/api"
	"github.com/studyhub/studyhub/internal/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == uuid.Nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	status, err := h.svc.GetQuota(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}
		slog.Error("getting quota", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
