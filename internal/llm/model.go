// Package llm adapts the text-generation model behind a minimal interface:
// send a prompt, get text back.
package llm

import "context"

// Model is a resolved model bound to one credential.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Factory resolves a Model per request. An empty apiKey or modelName selects
// the process default.
type Factory interface {
	GetModel(apiKey, modelName string) (Model, error)
}
