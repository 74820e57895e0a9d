package study

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyhub/studyhub/internal/llm"
	"github.com/studyhub/studyhub/internal/quota"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrAPIKeyMissing    = errors.New("AI API key missing")
	ErrAPIKeyInvalid    = errors.New("AI API key invalid")
	ErrRateLimited      = errors.New("AI provider rate limited")
	ErrGenerationFailed = errors.New("generation failed")
)

// Error is a typed pipeline failure. errors.Is matches both Kind and the cause.
type Error struct {
	Artifact Artifact
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Artifact, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Artifact, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// parseError is a decode or shape failure of model output. It triggers the
// reformat re-prompt and never leaves the package.
type parseError struct {
	Artifact Artifact
	Err      error
}

func (e *parseError) Error() string {
	return fmt.Sprintf("parsing %s output: %v", e.Artifact, e.Err)
}

func (e *parseError) Unwrap() error { return e.Err }

// classify maps a model resolution or invocation failure onto the error taxonomy.
// Credential problems are checked before throttling.
func classify(artifact Artifact, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Artifact: artifact, Kind: ErrGenerationFailed, Err: err}
	}
	switch llm.DetectAPIKeyError(err) {
	case llm.KeyErrorMissing:
		return &Error{Artifact: artifact, Kind: ErrAPIKeyMissing, Err: err}
	case llm.KeyErrorInvalid:
		return &Error{Artifact: artifact, Kind: ErrAPIKeyInvalid, Err: err}
	}
	if llm.IsRateLimited(err) {
		return &Error{Artifact: artifact, Kind: ErrRateLimited, Err: err}
	}
	return &Error{Artifact: artifact, Kind: ErrGenerationFailed, Err: err}
}

// ErrorKind returns a stable name for err, used in events, metrics and API responses.
func ErrorKind(err error) string {
	var exceeded *quota.ExceededError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &exceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, quota.ErrUserNotFound):
		return "unauthorized"
	case errors.Is(err, ErrAPIKeyMissing):
		return "api_key_missing"
	case errors.Is(err, ErrAPIKeyInvalid):
		return "api_key_invalid"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	default:
		return "internal"
	}
}
