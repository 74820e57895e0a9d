package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Log matches the audit_logs table schema.
type Log struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	EventType string          `json:"event_type"`
	Severity  string          `json:"severity"`
	Artifact  string          `json:"artifact,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for activity queries.
type ListParams struct {
	EventType string
	Artifact  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}

// Event types.
const (
	EventGenerationSucceeded = "generation_succeeded"
	EventGenerationFailed    = "generation_failed"
	EventQuotaExceeded       = "quota_exceeded"
)
