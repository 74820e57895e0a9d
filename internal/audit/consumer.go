package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/studyhub/studyhub/internal/nats"
)

// Inserter persists activity entries.
type Inserter interface {
	Insert(ctx context.Context, log *Log) error
}

// Consumer listens on the generation event subjects and persists them as activity.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "activity-persister", inats.SubjectGenerationAll)
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "activity-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var event inats.GenerationEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		// Malformed payloads are terminated, not redelivered.
		slog.Error("audit consumer: unmarshaling event", "error", err)
		_ = msg.Term()
		return
	}

	if err := c.repo.Insert(ctx, eventToLog(event)); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_id", event.EventID)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("audit consumer: persisted event",
		"event_id", event.EventID,
		"user_id", event.UserID,
		"artifact", event.Artifact,
		"outcome", event.Outcome,
	)
}

func eventToLog(event inats.GenerationEvent) *Log {
	log := &Log{
		ID:        event.EventID,
		UserID:    event.UserID,
		EventType: EventGenerationSucceeded,
		Severity:  "info",
		Artifact:  event.Artifact,
		CreatedAt: event.Timestamp,
	}

	switch {
	case event.Outcome == "success":
	case event.ErrorKind == "quota_exceeded":
		log.EventType = EventQuotaExceeded
		log.Severity = "warn"
	default:
		log.EventType = EventGenerationFailed
		log.Severity = "error"
	}

	details := map[string]any{
		"model":       event.Model,
		"own_key":     event.OwnKey,
		"duration_ms": event.DurationMs,
	}
	if event.ErrorKind != "" {
		details["error_kind"] = event.ErrorKind
	}
	if data, err := json.Marshal(details); err == nil {
		log.Details = data
	}

	return log
}
