package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/studyhub/studyhub/internal/config"
)

// DefaultModel is used when neither the request nor the configuration names one.
const DefaultModel = "gpt-4o-mini"

var ErrAPIKeyMissing = errors.New("model API key is not configured")

// Provider builds OpenAI-compatible chat models.
type Provider struct {
	defaultKey   string
	defaultModel string
	baseURL      string
	temperature  float32
	maxTokens    int
	httpClient   *http.Client
}

func NewProvider(cfg config.AIConfig) *Provider {
	return &Provider{
		defaultKey:   strings.TrimSpace(cfg.APIKey),
		defaultModel: strings.TrimSpace(cfg.Model),
		baseURL:      strings.TrimSpace(cfg.BaseURL),
		temperature:  float32(cfg.Temperature),
		maxTokens:    cfg.MaxTokens,
	}
}

// WithHTTPClient overrides the transport used by every model built afterwards.
func (p *Provider) WithHTTPClient(c *http.Client) *Provider {
	p.httpClient = c
	return p
}

func (p *Provider) GetModel(apiKey, modelName string) (Model, error) {
	key := firstNonEmpty(apiKey, p.defaultKey)
	if key == "" {
		return nil, ErrAPIKeyMissing
	}
	name := firstNonEmpty(modelName, p.defaultModel, DefaultModel)

	oc := openai.DefaultConfig(key)
	if p.baseURL != "" {
		oc.BaseURL = p.baseURL
	}
	if p.httpClient != nil {
		oc.HTTPClient = p.httpClient
	}

	return &chatModel{
		client:      openai.NewClientWithConfig(oc),
		name:        name,
		temperature: p.temperature,
		maxTokens:   p.maxTokens,
	}, nil
}

type chatModel struct {
	client      *openai.Client
	name        string
	temperature float32
	maxTokens   int
}

func (m *chatModel) Name() string { return m.name }

func (m *chatModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.name,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", m.name)
	}
	return resp.Choices[0].Message.Content, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
