package study

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/studyhub/studyhub/internal/extract"
	"github.com/studyhub/studyhub/internal/llm"
	"github.com/studyhub/studyhub/internal/metrics"
)

// inlineAnswer finds an answer the model folded into the front, e.g. "... Answer: Paris".
// A bare "A:" only counts at the start or after a sentence end, so "vitamin A: ..." is a question.
var inlineAnswer = regexp.MustCompile(`(?i)(?:\b(Answer|Ans)|(?:^|[?.!])\s*(A))\s*(?::|-\s)\s*(.+)$`)

var errNoFlashcards = errors.New("no flashcards in output")

// CreateFlashcards generates flashcards from content and repairs cards whose back is
// empty or repeats the front.
func (g *Generator) CreateFlashcards(ctx context.Context, content string, opts Options) ([]Flashcard, error) {
	m, err := g.model(ArtifactFlashcards, opts)
	if err != nil {
		return nil, err
	}
	cards, err := produce(ctx, g, ArtifactFlashcards, m, flashcardsPrompt(content), g.decodeFlashcards)
	if err != nil {
		return nil, err
	}
	return g.repairFlashcards(ctx, m, cards), nil
}

func (g *Generator) decodeFlashcards(raw string) ([]Flashcard, error) {
	var cards []Flashcard
	if err := json.Unmarshal([]byte(extract.JSONSubstring(raw, true)), &cards); err != nil {
		var wrapped struct {
			Flashcards []Flashcard `json:"flashcards"`
			Cards      []Flashcard `json:"cards"`
		}
		if werr := json.Unmarshal([]byte(extract.JSONSubstring(raw, false)), &wrapped); werr != nil {
			return nil, &parseError{Artifact: ArtifactFlashcards, Err: err}
		}
		cards = wrapped.Flashcards
		if len(cards) == 0 {
			cards = wrapped.Cards
		}
	}
	valid := cards[:0]
	var lastErr error
	for _, c := range cards {
		if err := g.validate.Struct(c); err != nil {
			lastErr = err
			continue
		}
		valid = append(valid, c)
	}
	if dropped := len(cards) - len(valid); dropped > 0 {
		g.log.Warn("dropped invalid flashcards", "dropped", dropped, "kept", len(valid), "error", lastErr)
	}
	if len(valid) == 0 {
		if lastErr != nil {
			return nil, &parseError{Artifact: ArtifactFlashcards, Err: lastErr}
		}
		return nil, &parseError{Artifact: ArtifactFlashcards, Err: errNoFlashcards}
	}
	return valid, nil
}

func needsRepair(c Flashcard) bool {
	back := strings.TrimSpace(c.Back)
	return back == "" || back == strings.TrimSpace(c.Front)
}

// splitInlineAnswer separates "question Answer: answer" into its two halves.
func splitInlineAnswer(front string) (question, answer string, ok bool) {
	loc := inlineAnswer.FindStringSubmatchIndex(front)
	if loc == nil {
		return "", "", false
	}
	marker := loc[2]
	if marker < 0 {
		marker = loc[4]
	}
	question = strings.TrimSpace(front[:marker])
	answer = strings.TrimSpace(front[loc[6]:loc[7]])
	if question == "" || answer == "" {
		return "", "", false
	}
	return question, answer, true
}

func cleanAnswer(text string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(text), ":-"))
}

// repairFlashcards fixes cards in place: first by splitting an inline answer off the
// front, then by asking the model for a short answer. Secondary calls run in card order
// within the repair budget; a failed call leaves the card unchanged.
func (g *Generator) repairFlashcards(ctx context.Context, m llm.Model, cards []Flashcard) []Flashcard {
	var pending []int
	for i := range cards {
		if !needsRepair(cards[i]) {
			continue
		}
		if q, a, ok := splitInlineAnswer(cards[i].Front); ok {
			cards[i].Front, cards[i].Back = q, a
			metrics.FlashcardRepairsTotal.WithLabelValues("inline").Inc()
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		return cards
	}

	if g.repairBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.repairBudget)
		defer cancel()
	}

	answer := func(i int) {
		if ctx.Err() != nil {
			metrics.FlashcardRepairsTotal.WithLabelValues("skipped").Inc()
			return
		}
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				metrics.FlashcardRepairsTotal.WithLabelValues("skipped").Inc()
				return
			}
		}
		text, err := g.invoke(ctx, m, answerPrompt(cards[i].Front))
		if err != nil {
			metrics.FlashcardRepairsTotal.WithLabelValues("failed").Inc()
			g.log.Warn("flashcard answer request failed, keeping card as is",
				"index", i, "model", m.Name(), "error", err)
			return
		}
		if back := cleanAnswer(text); back != "" {
			cards[i].Back = back
			metrics.FlashcardRepairsTotal.WithLabelValues("model").Inc()
		}
	}

	if g.repairConcurrency <= 1 {
		for _, i := range pending {
			answer(i)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(g.repairConcurrency)
		for _, i := range pending {
			eg.Go(func() error {
				answer(i)
				return nil
			})
		}
		_ = eg.Wait()
	}

	if ctx.Err() != nil {
		g.log.Warn("flashcard repair budget exhausted", "pending", len(pending), "budget", g.repairBudget)
	}
	return cards
}
