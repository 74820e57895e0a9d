package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "access-secret-32-chars-long!!!!!"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	mgr := NewJWTManager(testSecret, "studyhub")

	t.Run("generate and validate access token", func(t *testing.T) {
		token, err := mgr.GenerateAccessToken("user-123", "test@example.com", 15*time.Minute)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := mgr.ValidateAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.UserID)
		assert.Equal(t, "test@example.com", claims.Email)
	})

	t.Run("invalid token fails validation", func(t *testing.T) {
		_, err := mgr.ValidateAccessToken("invalid-token")
		assert.Error(t, err)
	})

	t.Run("wrong secret fails validation", func(t *testing.T) {
		other := NewJWTManager("another-secret-32-chars-long!!!!", "studyhub")
		token, err := other.GenerateAccessToken("user-1", "x@x.com", time.Minute)
		require.NoError(t, err)

		_, err = mgr.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("foreign issuer fails validation", func(t *testing.T) {
		other := NewJWTManager(testSecret, "someone-else")
		token, err := other.GenerateAccessToken("user-1", "x@x.com", time.Minute)
		require.NoError(t, err)

		_, err = mgr.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token fails", func(t *testing.T) {
		token, err := mgr.GenerateAccessToken("user-exp", "exp@test.com", -1*time.Second)
		require.NoError(t, err)

		_, err = mgr.ValidateAccessToken(token)
		assert.Error(t, err)
	})
}
