package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/core"
)

// Registry is the process-wide map of live pairing attempts, keyed by
// session id. All entry lifecycle mutation goes through Register, Remove,
// Sweep and DrainAll; no other component touches the map.
type Registry struct {
	mu       sync.Mutex
	attempts map[string]*Attempt
	log      zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		attempts: make(map[string]*Attempt),
		log:      log.With().Str("component", "registry").Logger(),
	}
}

// Register inserts an attempt under its session id. An existing entry for
// the same id is fully torn down, connection closed and timer cancelled,
// before the new one goes in. This is what enforces one attempt per id.
//
// A different live attempt already pairing the same target number blocks
// the insert: Register returns its session id and core.ErrNumberBusy. The
// check and the insert share one critical section so two concurrent
// requests for the same number cannot both get in.
func (r *Registry) Register(id string, a *Attempt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.target != "" {
		for otherID, other := range r.attempts {
			if otherID != id && other.target == a.target {
				return otherID, core.ErrNumberBusy
			}
		}
	}

	if old, ok := r.attempts[id]; ok {
		r.log.Info().Str("session_id", id).Msg("replacing live pairing attempt")
		old.shutdown(core.ErrAttemptReplaced)
		delete(r.attempts, id)
	}
	r.attempts[id] = a
	return "", nil
}

// Remove deletes the entry for id if it still holds this exact attempt.
// Idempotent, and a replaced attempt can never evict its successor.
func (r *Registry) Remove(id string, a *Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.attempts[id]; ok && cur == a {
		delete(r.attempts, id)
	}
}

// Get returns the live attempt for id, if any.
func (r *Registry) Get(id string) (*Attempt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.attempts[id]
	return a, ok
}

// Len reports how many attempts are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// Sweep tears down and removes every attempt older than maxAge. Returns the
// number of attempts removed.
func (r *Registry) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var stale []*Attempt
	for id, a := range r.attempts {
		if a.created.Before(cutoff) {
			stale = append(stale, a)
			delete(r.attempts, id)
		}
	}
	r.mu.Unlock()

	for _, a := range stale {
		r.log.Info().Str("session_id", a.id).Msg("sweeping stale pairing attempt")
		a.shutdown(core.ErrAttemptTimeout)
	}
	return len(stale)
}

// DrainAll tears down every live attempt. Called once at process shutdown.
func (r *Registry) DrainAll() {
	r.mu.Lock()
	drained := make([]*Attempt, 0, len(r.attempts))
	for id, a := range r.attempts {
		drained = append(drained, a)
		delete(r.attempts, id)
	}
	r.mu.Unlock()

	for _, a := range drained {
		a.shutdown(core.ErrShuttingDown)
	}
	if len(drained) > 0 {
		r.log.Info().Int("count", len(drained)).Msg("drained live pairing attempts")
	}
}
