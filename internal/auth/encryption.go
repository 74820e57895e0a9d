package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// apiKeyVersion prefixes stored personal API keys so a future key format can coexist.
const apiKeyVersion = "v1:"

// apiKeyAAD binds ciphertexts to their purpose; a sealed API key cannot be opened as
// anything else encrypted under the same ENCRYPTION_KEY.
var apiKeyAAD = []byte("studyhub/ai-api-key")

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Encryptor seals users' personal model API keys at rest with AES-256-GCM.
type Encryptor struct {
	gcm cipher.AEAD
}

func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decoding encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Encryptor{gcm: gcm}, nil
}

// Encrypt returns "v1:" followed by the hex of nonce||ciphertext.
func (e *Encryptor) Encrypt(apiKey string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := e.gcm.Seal(nonce, nonce, []byte(apiKey), apiKeyAAD)
	return apiKeyVersion + hex.EncodeToString(sealed), nil
}

func (e *Encryptor) Decrypt(stored string) (string, error) {
	payload, ok := strings.CutPrefix(stored, apiKeyVersion)
	if !ok {
		return "", fmt.Errorf("%w: unknown version", ErrMalformedCiphertext)
	}
	sealed, err := hex.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}

	nonceSize := e.gcm.NonceSize()
	if len(sealed) < nonceSize+e.gcm.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrMalformedCiphertext)
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	apiKey, err := e.gcm.Open(nil, nonce, ciphertext, apiKeyAAD)
	if err != nil {
		return "", fmt.Errorf("opening api key: %w", err)
	}
	return string(apiKey), nil
}
