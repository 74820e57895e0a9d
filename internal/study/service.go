package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/metrics"
	inats "github.com/studyhub/studyhub/internal/nats"
	"github.com/studyhub/studyhub/internal/quota"
	"github.com/studyhub/studyhub/internal/users"
)

// QuotaGate is the daily limit check. CheckQuota and IncrementQuota are always used as a
// pair: check before the model is invoked, increment only after success.
type QuotaGate interface {
	CheckQuota(ctx context.Context, userID uuid.UUID, kind quota.Kind) error
	IncrementQuota(ctx context.Context, userID uuid.UUID, kind quota.Kind) error
}

// CredentialStore returns a user's personal API key and preferred model, empty if unset.
type CredentialStore interface {
	Credentials(ctx context.Context, userID uuid.UUID) (apiKey, model string, err error)
}

type EventPublisher interface {
	PublishGenerationEvent(ctx context.Context, event inats.GenerationEvent) error
}

const publishTimeout = 2 * time.Second

// Service runs generations on behalf of authenticated users under the daily quota.
type Service struct {
	gen    *Generator
	quota  QuotaGate
	creds  CredentialStore
	events EventPublisher
	log    *slog.Logger
}

// NewService creates a study Service. events may be nil when NATS is not configured.
func NewService(gen *Generator, gate QuotaGate, creds CredentialStore, events EventPublisher) *Service {
	return &Service{
		gen:    gen,
		quota:  gate,
		creds:  creds,
		events: events,
		log:    slog.Default().With("component", "study.service"),
	}
}

func (s *Service) CreateStudyNotes(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*StudyNote, error) {
	return run(ctx, s, userID, ArtifactNotes, req.APIKey, req.Model, func(ctx context.Context, opts Options) (*StudyNote, error) {
		return s.gen.CreateStudyNotes(ctx, req.Content, opts)
	})
}

func (s *Service) CreateFlashcards(ctx context.Context, userID uuid.UUID, req GenerateRequest) ([]Flashcard, error) {
	return run(ctx, s, userID, ArtifactFlashcards, req.APIKey, req.Model, func(ctx context.Context, opts Options) ([]Flashcard, error) {
		return s.gen.CreateFlashcards(ctx, req.Content, opts)
	})
}

func (s *Service) CreateKnowledgeTree(ctx context.Context, userID uuid.UUID, req GenerateRequest) (*KnowledgeNode, error) {
	return run(ctx, s, userID, ArtifactTree, req.APIKey, req.Model, func(ctx context.Context, opts Options) (*KnowledgeNode, error) {
		return s.gen.CreateKnowledgeTree(ctx, req.Content, opts)
	})
}

// Ask answers a study question. It counts against the chat quota.
func (s *Service) Ask(ctx context.Context, userID uuid.UUID, req AskRequest) (*AskResponse, error) {
	return run(ctx, s, userID, ArtifactChat, req.APIKey, req.Model, func(ctx context.Context, opts Options) (*AskResponse, error) {
		answer, err := s.gen.Answer(ctx, req.Question, req.Content, opts)
		if err != nil {
			return nil, err
		}
		return &AskResponse{Answer: answer}, nil
	})
}

func quotaKind(artifact Artifact) quota.Kind {
	if artifact == ArtifactChat {
		return quota.KindChat
	}
	return quota.KindGeneration
}

func run[T any](ctx context.Context, s *Service, userID uuid.UUID, artifact Artifact, apiKey, model string, generate func(context.Context, Options) (T, error)) (T, error) {
	var zero T

	if userID == uuid.Nil {
		return zero, &Error{Artifact: artifact, Kind: ErrUnauthorized}
	}

	kind := quotaKind(artifact)
	if err := s.quota.CheckQuota(ctx, userID, kind); err != nil {
		var exceeded *quota.ExceededError
		switch {
		case errors.As(err, &exceeded):
			s.publish(ctx, userID, artifact, Options{}, 0, err)
			return zero, err
		case errors.Is(err, quota.ErrUserNotFound):
			return zero, &Error{Artifact: artifact, Kind: ErrUnauthorized, Err: err}
		default:
			return zero, fmt.Errorf("checking %s quota: %w", kind, err)
		}
	}

	opts, err := s.resolveOptions(ctx, userID, artifact, apiKey, model)
	if err != nil {
		return zero, err
	}

	start := time.Now()
	v, err := generate(ctx, opts)
	elapsed := time.Since(start)

	metrics.GenerationsTotal.WithLabelValues(string(artifact), ErrorKind(err)).Inc()
	metrics.GenerationDuration.WithLabelValues(string(artifact)).Observe(elapsed.Seconds())
	s.publish(ctx, userID, artifact, opts, elapsed, err)

	if err != nil {
		s.log.Warn("generation failed",
			"user_id", userID, "artifact", artifact, "kind", ErrorKind(err), "error", err)
		return zero, err
	}

	if err := s.quota.IncrementQuota(ctx, userID, kind); err != nil {
		s.log.Error("incrementing quota after successful generation",
			"user_id", userID, "artifact", artifact, "error", err)
	}

	s.log.Info("generation completed",
		"user_id", userID, "artifact", artifact, "own_key", opts.APIKey != "", "duration", elapsed)
	return v, nil
}

// resolveOptions prefers request values, then the user's stored credentials. Whatever
// is still empty falls through to the process defaults.
func (s *Service) resolveOptions(ctx context.Context, userID uuid.UUID, artifact Artifact, apiKey, model string) (Options, error) {
	opts := Options{APIKey: strings.TrimSpace(apiKey), Model: strings.TrimSpace(model)}
	if opts.APIKey != "" && opts.Model != "" {
		return opts, nil
	}

	storedKey, storedModel, err := s.creds.Credentials(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return Options{}, &Error{Artifact: artifact, Kind: ErrUnauthorized, Err: err}
	}
	if err != nil {
		return Options{}, fmt.Errorf("loading stored credentials: %w", err)
	}
	if opts.APIKey == "" {
		opts.APIKey = storedKey
	}
	if opts.Model == "" {
		opts.Model = storedModel
	}
	return opts, nil
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, artifact Artifact, opts Options, elapsed time.Duration, genErr error) {
	if s.events == nil {
		return
	}

	event := inats.GenerationEvent{
		EventID:    uuid.New(),
		UserID:     userID,
		Artifact:   string(artifact),
		Outcome:    "success",
		Model:      opts.Model,
		OwnKey:     opts.APIKey != "",
		DurationMs: elapsed.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if genErr != nil {
		event.Outcome = "failure"
		event.ErrorKind = ErrorKind(genErr)
	}

	// The request context may already be cancelled when generation timed out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishGenerationEvent(pubCtx, event); err != nil {
		s.log.Warn("publishing generation event", "event_id", event.EventID, "error", err)
	}
}
