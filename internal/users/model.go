package users

import (
	"time"

	"github.com/google/uuid"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	IsPremium       bool      `json:"is_premium"`
	EncryptedAPIKey string    `json:"-"`
	PreferredModel  string    `json:"preferred_model,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Tier reports the subscription tier that selects the user's daily limits.
func (u *User) Tier() Tier {
	if u.IsPremium {
		return TierPremium
	}
	return TierFree
}

// HasOwnKey reports whether the user stored a personal model API key.
func (u *User) HasOwnKey() bool {
	return u.EncryptedAPIKey != ""
}

type UpdateCredentialsRequest struct {
	APIKey string `json:"api_key" validate:"required,min=8,max=512"`
	Model  string `json:"model" validate:"omitempty,max=128"`
}

type CredentialsResponse struct {
	HasOwnKey      bool   `json:"has_own_key"`
	PreferredModel string `json:"preferred_model,omitempty"`
}
