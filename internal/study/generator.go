package study

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/llm"
	"github.com/studyhub/studyhub/internal/metrics"
	"github.com/studyhub/studyhub/internal/retry"
)

type GeneratorConfig struct {
	Retry retry.Options

	// RepairBudget bounds the whole flashcard repair phase. Zero means unbounded.
	RepairBudget time.Duration
	// RepairConcurrency > 1 answers cards in parallel; results keep card order.
	RepairConcurrency int
	// RepairRate caps secondary answer calls per second across all requests. Zero disables pacing.
	RepairRate float64
}

func GeneratorConfigFromAI(cfg config.AIConfig) GeneratorConfig {
	return GeneratorConfig{
		Retry:             retry.OptionsFromConfig(cfg),
		RepairBudget:      cfg.RepairBudget,
		RepairConcurrency: cfg.RepairConcurrency,
		RepairRate:        cfg.RepairRate,
	}
}

// Generator turns source text into validated study artifacts.
type Generator struct {
	models   llm.Factory
	retry    retry.Options
	validate *validator.Validate
	log      *slog.Logger

	repairBudget      time.Duration
	repairConcurrency int
	limiter           *rate.Limiter
}

func NewGenerator(models llm.Factory, cfg GeneratorConfig) *Generator {
	g := &Generator{
		models:            models,
		retry:             cfg.Retry,
		validate:          validator.New(),
		log:               slog.Default().With("component", "study.generator"),
		repairBudget:      cfg.RepairBudget,
		repairConcurrency: cfg.RepairConcurrency,
	}
	if g.repairConcurrency < 1 {
		g.repairConcurrency = 1
	}
	if cfg.RepairRate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RepairRate), g.repairConcurrency)
	}
	return g
}

func (g *Generator) model(artifact Artifact, opts Options) (llm.Model, error) {
	m, err := g.models.GetModel(opts.APIKey, opts.Model)
	if err != nil {
		return nil, classify(artifact, err)
	}
	return m, nil
}

func (g *Generator) invoke(ctx context.Context, m llm.Model, prompt string) (string, error) {
	return retry.Do(ctx, g.retry, func(ctx context.Context) (string, error) {
		return m.Generate(ctx, prompt)
	})
}

// produce runs invoke, decode and at most one strict-JSON re-prompt.
func produce[T any](ctx context.Context, g *Generator, artifact Artifact, m llm.Model, prompt string, decode func(string) (T, error)) (T, error) {
	var zero T

	raw, err := g.invoke(ctx, m, prompt)
	if err != nil {
		return zero, classify(artifact, err)
	}

	v, perr := decode(raw)
	if perr == nil {
		return v, nil
	}

	g.log.Warn("model output did not parse, requesting strict JSON",
		"artifact", artifact, "model", m.Name(), "error", perr)

	raw, err = g.invoke(ctx, m, reformatPrompt(artifact, raw))
	if err != nil {
		metrics.ReformatAttemptsTotal.WithLabelValues(string(artifact), "error").Inc()
		return zero, classify(artifact, err)
	}

	v, perr = decode(raw)
	if perr != nil {
		metrics.ReformatAttemptsTotal.WithLabelValues(string(artifact), "failed").Inc()
		g.log.Error("reformatted output still did not parse",
			"artifact", artifact, "model", m.Name(), "error", perr)
		return zero, &Error{Artifact: artifact, Kind: ErrGenerationFailed, Err: perr}
	}

	metrics.ReformatAttemptsTotal.WithLabelValues(string(artifact), "recovered").Inc()
	return v, nil
}
