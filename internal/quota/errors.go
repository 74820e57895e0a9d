package quota

import (
	"errors"
	"fmt"

	"github.com/studyhub/studyhub/internal/users"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUnknownKind  = errors.New("unknown quota kind")
)

// ExceededError is returned by CheckQuota when the counter already reached the tier limit.
type ExceededError struct {
	Kind  Kind
	Tier  users.Tier
	Limit int
	Used  int
}

func (e *ExceededError) Error() string {
	if e.Kind == KindChat {
		return fmt.Sprintf("daily AI chat limit reached: %d messages per day on the %s plan", e.Limit, e.Tier)
	}
	return fmt.Sprintf("daily AI generation limit reached: %d generations per day on the %s plan", e.Limit, e.Tier)
}
