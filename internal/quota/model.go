package quota

import (
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/studyhub/internal/users"
)

// Kind selects one of the two independent daily counters.
type Kind string

const (
	KindGeneration Kind = "generation"
	KindChat       Kind = "chat"
)

func (k Kind) Valid() bool {
	return k == KindGeneration || k == KindChat
}

// Limits is the pair of daily limits for one subscription tier.
type Limits struct {
	Generation int
	Chat       int
}

func (l Limits) For(kind Kind) int {
	if kind == KindChat {
		return l.Chat
	}
	return l.Generation
}

// Record matches the user_quotas table schema.
type Record struct {
	UserID          uuid.UUID `json:"user_id"`
	GenerationCount int       `json:"generation_count"`
	ChatCount       int       `json:"chat_count"`
	LastResetDate   time.Time `json:"last_reset_date"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *Record) Count(kind Kind) int {
	if kind == KindChat {
		return r.ChatCount
	}
	return r.GenerationCount
}

// Usage is one counter as shown to the user.
type Usage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

func newUsage(used, limit int) Usage {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Used: used, Limit: limit, Remaining: remaining}
}

// Status is the API response showing current quota usage and limits.
type Status struct {
	Tier       users.Tier `json:"tier"`
	Generation Usage      `json:"generation"`
	Chat       Usage      `json:"chat"`
	ResetDate  string     `json:"reset_date"`
	ResetsAt   time.Time  `json:"resets_at"`
}
