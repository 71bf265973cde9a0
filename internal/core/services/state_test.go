package services

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	t.Run("generates valid state", func(t *testing.T) {
		state, err := NewState()
		require.NoError(t, err)

		decoded, err := base64.RawURLEncoding.DecodeString(state)
		require.NoError(t, err)
		assert.Len(t, decoded, stateLength)
	})

	t.Run("is url safe", func(t *testing.T) {
		state, err := NewState()
		require.NoError(t, err)

		assert.False(t, strings.ContainsAny(state, "+/="))
	})

	t.Run("generates unique states", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			state, err := NewState()
			require.NoError(t, err)
			assert.False(t, seen[state], "should not generate duplicate states")
			seen[state] = true
		}
	})
}

func TestStateMatches(t *testing.T) {
	assert.True(t, stateMatches("abc", "abc"))
	assert.False(t, stateMatches("abc", "abd"))
	assert.False(t, stateMatches("abc", ""))
}
