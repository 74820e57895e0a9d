package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// Cipher encrypts personal API keys at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type Service struct {
	repo   Repository
	cipher Cipher
}

func NewService(repo Repository, cipher Cipher) *Service {
	return &Service{repo: repo, cipher: cipher}
}

// GetByID returns nil, nil when the user does not exist.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Credentials returns the user's decrypted personal API key and preferred model.
// Both are empty when the user has not stored any.
func (s *Service) Credentials(ctx context.Context, id uuid.UUID) (apiKey, model string, err error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	if user == nil {
		return "", "", ErrUserNotFound
	}
	if !user.HasOwnKey() {
		return "", user.PreferredModel, nil
	}

	apiKey, err = s.cipher.Decrypt(user.EncryptedAPIKey)
	if err != nil {
		// A key encrypted under a rotated ENCRYPTION_KEY is unusable; fall back to defaults.
		slog.Warn("users: stored api key could not be decrypted", "user_id", id, "error", err)
		return "", user.PreferredModel, nil
	}
	return apiKey, user.PreferredModel, nil
}

func (s *Service) SaveCredentials(ctx context.Context, id uuid.UUID, req UpdateCredentialsRequest) error {
	encrypted, err := s.cipher.Encrypt(req.APIKey)
	if err != nil {
		return fmt.Errorf("encrypting api key: %w", err)
	}
	return s.repo.UpdateCredentials(ctx, id, encrypted, req.Model)
}

func (s *Service) ClearCredentials(ctx context.Context, id uuid.UUID) error {
	return s.repo.ClearCredentials(ctx, id)
}
