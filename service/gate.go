package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pairgate/pairgate/core"
)

// ResponseGate is a single-assignment result cell guarding the one HTTP
// response of a pairing attempt. Timeout, close, open and code-request
// completion all race to finalize the response; the first Resolve wins and
// every later call is a silent no-op.
type ResponseGate struct {
	once     sync.Once
	resolved atomic.Bool
	ch       chan core.Outcome
}

// NewResponseGate returns an unresolved gate.
func NewResponseGate() *ResponseGate {
	return &ResponseGate{ch: make(chan core.Outcome, 1)}
}

// Resolve delivers the terminal outcome. It reports whether this call was
// the winning one.
func (g *ResponseGate) Resolve(out core.Outcome) bool {
	won := false
	g.once.Do(func() {
		g.ch <- out
		g.resolved.Store(true)
		won = true
	})
	return won
}

// Resolved reports whether an outcome has been delivered.
func (g *ResponseGate) Resolved() bool {
	return g.resolved.Load()
}

// Wait blocks until the gate resolves or ctx is done.
func (g *ResponseGate) Wait(ctx context.Context) (core.Outcome, error) {
	select {
	case out := <-g.ch:
		return out, nil
	case <-ctx.Done():
		return core.Outcome{}, ctx.Err()
	}
}
