package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists quota records. Each method must be a single atomic operation
// against the backing store so concurrent requests never lose an update.
type Store interface {
	// ResetIfStale creates the record for day if absent, zeroes both counters if the
	// stored date is earlier than day, and returns the resulting record.
	ResetIfStale(ctx context.Context, userID uuid.UUID, day time.Time) (*Record, error)

	// Increment adds one to the counter of kind and returns its new value.
	Increment(ctx context.Context, userID uuid.UUID, kind Kind, day time.Time) (int, error)
}

const dateLayout = "2006-01-02"

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
