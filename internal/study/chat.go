package study

import (
	"context"
	"errors"
	"strings"
)

var errEmptyAnswer = errors.New("model returned an empty answer")

// Answer replies to a free-form study question, optionally grounded in content.
// Chat output is plain text, so it goes through retry but not through reformatting.
func (g *Generator) Answer(ctx context.Context, question, content string, opts Options) (string, error) {
	m, err := g.model(ArtifactChat, opts)
	if err != nil {
		return "", err
	}
	text, err := g.invoke(ctx, m, chatPrompt(strings.TrimSpace(question), strings.TrimSpace(content)))
	if err != nil {
		return "", classify(ArtifactChat, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &Error{Artifact: ArtifactChat, Kind: ErrGenerationFailed, Err: errEmptyAnswer}
	}
	return text, nil
}
