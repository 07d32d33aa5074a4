package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tokens := NewTokens("secret", "campus-api", 5*time.Minute, 24*time.Hour)

	pair, err := tokens.Issue(42, RoleStaff)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	access, err := tokens.Parse(pair.AccessToken, TypeAccess)
	require.NoError(t, err)
	id, err := access.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.True(t, access.IsStaff())
	assert.NotEqual(t, pair.RefreshID, access.ID)

	refresh, err := tokens.Parse(pair.RefreshToken, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.ID)
}

func TestParseRejects(t *testing.T) {
	tokens := NewTokens("secret", "campus-api", time.Minute, time.Hour)
	pair, err := tokens.Issue(7, RoleStudent)
	require.NoError(t, err)

	t.Run("wrong type", func(t *testing.T) {
		_, err := tokens.Parse(pair.RefreshToken, TypeAccess)
		assert.ErrorIs(t, err, ErrTokenType)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewTokens("other", "campus-api", time.Minute, time.Hour)
		_, err := other.Parse(pair.AccessToken, TypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokens("secret", "someone-else", time.Minute, time.Hour)
		_, err := other.Parse(pair.AccessToken, TypeAccess)
		assert.ErrorIs(t, err, ErrIssuerMismatch)
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokens("secret", "campus-api", time.Minute, time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		_, err := later.Parse(pair.AccessToken, TypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token", TypeAccess)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestRole(t *testing.T) {
	assert.Equal(t, RoleStaff, Role(true))
	assert.Equal(t, RoleStudent, Role(false))
}
