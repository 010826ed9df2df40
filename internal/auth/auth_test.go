package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

func testManager() *Manager {
	return NewManager(config.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  45 * time.Minute,
		RefreshTTL: 168 * time.Hour,
	})
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"0712 345 678", "254712345678"},
		{"+254 712 345 678", "254712345678"},
		{"0110123456", "254110123456"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "input %q", tt.in)
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()
	user := &models.User{ID: 42, Role: models.RoleAdmin}

	token, err := m.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	m := testManager()
	token, err := m.GenerateAccessToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	other := NewManager(config.AuthConfig{JWTSecret: "different", AccessTTL: time.Minute})
	_, err = other.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestAccessToken_Expired(t *testing.T) {
	m := testManager()
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := m.GenerateAccessToken(&models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.GenerateRefreshToken(7)
	require.NoError(t, err)

	id, err := m.ParseRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	// Access and refresh tokens sign with different secrets; one is not
	// valid as the other.
	_, err = m.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret-pass"))
}

func TestGenerateResetCode(t *testing.T) {
	code, hash, err := GenerateResetCode()
	require.NoError(t, err)

	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "code %q not numeric", code)
	}
	assert.Equal(t, HashResetCode(code), hash)
	assert.NotEqual(t, code, hash)
}
