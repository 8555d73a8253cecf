package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionID(t *testing.T) {
	require.NoError(t, ValidateSessionID("levi123abc"))
	require.NoError(t, ValidateSessionID("6f1c2a34-0b1d-4a7e-9a43-1f2e3d4c5b6a"))

	for _, id := range []string{"", ".", "..", "a/b", `a\b`, strings.Repeat("x", 129)} {
		assert.ErrorIs(t, ValidateSessionID(id), ErrInvalidSessionID, "id %q", id)
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{StateOpen, StateClosed, StateTimedOut, StateFailed} {
		assert.True(t, s.Terminal(), s.String())
	}
	for _, s := range []State{StateInitializing, StateCodeIssued, StateAwaitingConfirmation} {
		assert.False(t, s.Terminal(), s.String())
	}
}
