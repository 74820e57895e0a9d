package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// StatusError is a model invocation failure with the provider's HTTP status and error code.
type StatusError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("model request failed (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("model request failed (status %d): %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

func (e *StatusError) HTTPStatusCode() int { return e.Status }

func wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{
			Status:  apiErr.HTTPStatusCode,
			Code:    codeString(apiErr.Code),
			Message: apiErr.Message,
			Err:     err,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return err
}

func codeString(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// KeyError classifies credential failures.
type KeyError int

const (
	KeyErrorOther KeyError = iota
	KeyErrorMissing
	KeyErrorInvalid
)

func (k KeyError) String() string {
	switch k {
	case KeyErrorMissing:
		return "missing"
	case KeyErrorInvalid:
		return "invalid"
	default:
		return "other"
	}
}

var (
	missingKeyPhrases = []string{
		"api key not found",
		"api key is missing",
		"missing api key",
		"no api key",
		"didn't provide an api key",
		"api key is required",
		"api_key_missing",
	}
	invalidKeyPhrases = []string{
		"api key not valid",
		"invalid api key",
		"incorrect api key",
		"api_key_invalid",
		"invalid_api_key",
		"invalid x-api-key",
		"invalid authentication",
	}
	invalidKeyCodes = map[string]bool{
		"invalid_api_key":        true,
		"api_key_invalid":        true,
		"invalid_authentication": true,
		"authentication_error":   true,
	}
	rateLimitPhrases = []string{"quota", "rate limit", "resource_exhausted", "overloaded"}
	rateLimitStatus  = regexp.MustCompile(`\b(?:429|503)\b`)
)

// DetectAPIKeyError reports whether err means the credential is missing or rejected.
// Structured status and codes win; message matching is the fallback for providers
// and proxies that only return text.
func DetectAPIKeyError(err error) KeyError {
	if err == nil {
		return KeyErrorOther
	}
	if errors.Is(err, ErrAPIKeyMissing) {
		return KeyErrorMissing
	}

	msg := strings.ToLower(err.Error())

	var se *StatusError
	if errors.As(err, &se) {
		if invalidKeyCodes[strings.ToLower(se.Code)] {
			return KeyErrorInvalid
		}
		if se.Status == 401 {
			if containsAny(msg, missingKeyPhrases) {
				return KeyErrorMissing
			}
			return KeyErrorInvalid
		}
	}

	switch {
	case containsAny(msg, missingKeyPhrases):
		return KeyErrorMissing
	case containsAny(msg, invalidKeyPhrases):
		return KeyErrorInvalid
	}
	return KeyErrorOther
}

// IsRateLimited reports throttling or provider overload. A known upstream status
// decides on its own; message matching only applies to errors without one.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) && se.Status != 0 {
		return se.Status == 429 || se.Status == 503
	}
	msg := strings.ToLower(err.Error())
	return rateLimitStatus.MatchString(msg) || containsAny(msg, rateLimitPhrases)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
