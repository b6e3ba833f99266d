package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateRoundTrip(t *testing.T) {
	m, err := NewManager("test-secret-at-least-this-long", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("u1", "alice", false)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.False(t, claims.IsAdmin)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	m, err := NewManager("test-secret-at-least-this-long", time.Hour)
	require.NoError(t, err)

	token, err := m.Issue("u1", "alice", false)
	require.NoError(t, err)

	other, err := NewManager("different-secret-entirely", time.Hour)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.Error(t, err)
}

func TestNewManagerRejectsEmptySecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.Error(t, err)
}
