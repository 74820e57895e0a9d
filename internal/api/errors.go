package api

import (
	"errors"
	"net/http"
	"strconv"
)

// AppError is an error that carries its HTTP status and a stable machine-readable kind.
type AppError struct {
	Code       int    `json:"-"`
	Kind       string `json:"code,omitempty"`
	Message    string `json:"error"`
	RetryAfter int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest     = &AppError{Code: http.StatusBadRequest, Kind: "bad_request", Message: "bad request"}
	ErrUnauthorized   = &AppError{Code: http.StatusUnauthorized, Kind: "unauthorized", Message: "unauthorized"}
	ErrNotFound       = &AppError{Code: http.StatusNotFound, Kind: "not_found", Message: "not found"}
	ErrInternalServer = &AppError{Code: http.StatusInternalServerError, Kind: "internal", Message: "internal server error"}
	ErrInvalidToken   = &AppError{Code: http.StatusUnauthorized, Kind: "unauthorized", Message: "invalid or expired token"}
	ErrTooManyRequest = &AppError{Code: http.StatusTooManyRequests, Kind: "too_many_requests", Message: "too many requests"}
)

func NewBadRequestError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: "bad_request", Message: msg}
}

func NewValidationError(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Kind: "validation", Message: msg}
}

// NewError builds an AppError with an explicit status and kind.
func NewError(code int, kind, msg string) *AppError {
	return &AppError{Code: code, Kind: kind, Message: msg}
}

func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
		}
		writeJSON(w, appErr.Code, Response{Error: appErr.Message, Code: appErr.Kind})
		return
	}
	JSONErrorMessage(w, http.StatusInternalServerError, "internal server error")
}
