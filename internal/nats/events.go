package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

const StreamEvents = "STUDYHUB_EVENTS"

// Subject constants.
const (
	SubjectGenerationPrefix = "studyhub.events.generation" // studyhub.events.generation.{artifact}
	SubjectGenerationAll    = "studyhub.events.generation.>"
)

// GenerationEvent is published once per finished generation, successful or not.
type GenerationEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	UserID     uuid.UUID `json:"user_id"`
	Artifact   string    `json:"artifact"`
	Outcome    string    `json:"outcome"` // success, failure
	ErrorKind  string    `json:"error_kind,omitempty"`
	Model      string    `json:"model,omitempty"`
	OwnKey     bool      `json:"own_key"`
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
