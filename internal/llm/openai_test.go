package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/studyhub/internal/config"
)

type fakeOpenAI struct {
	mu       sync.Mutex
	keys     []string
	models   []string
	status   int
	errBody  string
	response string
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.keys = append(f.keys, r.Header.Get("Authorization"))
	f.models = append(f.models, req.Model)
	status, errBody, response := f.status, f.errBody, f.response
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(errBody))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": response},
			"finish_reason": "stop",
		}},
	})
}

func newTestProvider(t *testing.T, fake *fakeOpenAI, cfg config.AIConfig) *Provider {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL + "/v1"
	return NewProvider(cfg)
}

func TestProvider_GetModel_Resolution(t *testing.T) {
	t.Run("no key anywhere", func(t *testing.T) {
		p := NewProvider(config.AIConfig{})
		_, err := p.GetModel("", "")
		assert.ErrorIs(t, err, ErrAPIKeyMissing)
		assert.Equal(t, KeyErrorMissing, DetectAPIKeyError(err))
	})

	t.Run("blank explicit key falls back to default", func(t *testing.T) {
		p := NewProvider(config.AIConfig{APIKey: "sk-default"})
		m, err := p.GetModel("   ", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, m.Name())
	})

	t.Run("model precedence", func(t *testing.T) {
		p := NewProvider(config.AIConfig{APIKey: "sk-default", Model: "configured-model"})

		m, err := p.GetModel("", "explicit-model")
		require.NoError(t, err)
		assert.Equal(t, "explicit-model", m.Name())

		m, err = p.GetModel("", "")
		require.NoError(t, err)
		assert.Equal(t, "configured-model", m.Name())
	})
}

func TestChatModel_Generate(t *testing.T) {
	fake := &fakeOpenAI{response: `{"title":"Cells"}`}
	p := newTestProvider(t, fake, config.AIConfig{APIKey: "sk-default", Model: "configured-model"})

	m, err := p.GetModel("sk-user", "")
	require.NoError(t, err)

	text, err := m.Generate(context.Background(), "summarize")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Cells"}`, text)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.keys, 1)
	assert.Equal(t, "Bearer sk-user", fake.keys[0])
	assert.Equal(t, "configured-model", fake.models[0])
}

func TestChatModel_Generate_Errors(t *testing.T) {
	t.Run("invalid key", func(t *testing.T) {
		fake := &fakeOpenAI{
			status:  http.StatusUnauthorized,
			errBody: `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`,
		}
		p := newTestProvider(t, fake, config.AIConfig{APIKey: "sk-bad"})
		m, err := p.GetModel("", "")
		require.NoError(t, err)

		_, err = m.Generate(context.Background(), "x")
		require.Error(t, err)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusUnauthorized, se.HTTPStatusCode())
		assert.Equal(t, "invalid_api_key", se.Code)
		assert.Equal(t, KeyErrorInvalid, DetectAPIKeyError(err))
	})

	t.Run("overloaded", func(t *testing.T) {
		fake := &fakeOpenAI{
			status:  http.StatusServiceUnavailable,
			errBody: `{"error":{"message":"The engine is currently overloaded","type":"server_error"}}`,
		}
		p := newTestProvider(t, fake, config.AIConfig{APIKey: "sk-ok"})
		m, err := p.GetModel("", "")
		require.NoError(t, err)

		_, err = m.Generate(context.Background(), "x")
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
		assert.Equal(t, KeyErrorOther, DetectAPIKeyError(err))
	})
}
