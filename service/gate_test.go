package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairgate/pairgate/core"
)

func TestResponseGateResolvesExactlyOnce(t *testing.T) {
	gate := NewResponseGate()

	const racers = 32
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if gate.Resolve(core.Outcome{Kind: core.OutcomeFailure, SessionID: "s1", PairingCode: "racer"}) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.True(t, gate.Resolved())

	out, err := gate.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s1", out.SessionID)
}

func TestResponseGateWaitHonorsContext(t *testing.T) {
	gate := NewResponseGate()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := gate.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResponseGateLateResolveIsNoOp(t *testing.T) {
	gate := NewResponseGate()

	require.True(t, gate.Resolve(core.Outcome{Kind: core.OutcomePairingCode, SessionID: "first"}))
	require.False(t, gate.Resolve(core.Outcome{Kind: core.OutcomeFailure, SessionID: "second"}))

	out, err := gate.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", out.SessionID)
	assert.Equal(t, core.OutcomePairingCode, out.Kind)
}
