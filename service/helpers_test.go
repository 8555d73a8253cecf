package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pairgate/pairgate/adapters/transport"
	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/ports"
)

// memStore is an in-memory CredentialStore for coordinator tests.
type memStore struct {
	mu      sync.Mutex
	data    map[string]ports.AuthState
	saves   int
	loadErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]ports.AuthState)}
}

func (m *memStore) Load(sessionID string) (ports.AuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if state, ok := m.data[sessionID]; ok {
		return state.Clone(), nil
	}
	return ports.AuthState{}, nil
}

func (m *memStore) Save(sessionID string, state ports.AuthState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.data[sessionID] = state.Clone()
	return nil
}

func (m *memStore) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *memStore) Exists(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[sessionID]
	return ok
}

func (m *memStore) Archive(sessionID string, w io.Writer) error {
	if !m.Exists(sessionID) {
		return core.ErrSessionNotFound
	}
	_, err := w.Write([]byte("archive"))
	return err
}

func (m *memStore) SessionString(state ports.AuthState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

func (m *memStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// eventRec records published lifecycle events.
type eventRec struct {
	mu         sync.Mutex
	paired     []string
	failed     []string
	categories []string
	expired    []string
}

func (r *eventRec) PublishPaired(_ context.Context, sessionID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paired = append(r.paired, sessionID)
	return nil
}

func (r *eventRec) PublishFailed(_ context.Context, sessionID, category, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, sessionID)
	r.categories = append(r.categories, category)
	return nil
}

func (r *eventRec) PublishExpired(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, sessionID)
	return nil
}

func (r *eventRec) Paired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paired...)
}

func (r *eventRec) Failed() ([]string, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.failed...), append([]string(nil), r.categories...)
}

func (r *eventRec) Expired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.expired...)
}

type qrFake struct{ err error }

func (q qrFake) Render(string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return "data:image/png;base64,dGVzdA==", nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// testOptions keeps attempt timing tight enough for tests.
func testOptions() Options {
	return Options{
		WaitBudget:       2 * time.Second,
		CodeAttempts:     3,
		CodeRetryBase:    time.Millisecond,
		CodeRequestDelay: 0,
		QRPolicy:         QRRespondImmediate,
		DownloadTokenTTL: time.Hour,
	}
}

func newTestService(t *testing.T, wire ports.Transport, opts Options) (*PairingService, *memStore, *eventRec, *Registry) {
	t.Helper()

	store := newMemStore()
	rec := &eventRec{}
	registry := NewRegistry(zerolog.Nop())
	svc := NewPairingService(wire, store, rec, qrFake{}, nil, registry, opts, zerolog.Nop())

	t.Cleanup(registry.DrainAll)
	return svc, store, rec, registry
}

// newIdleAttempt builds an attempt that never runs, for registry tests.
func newIdleAttempt(t *testing.T, id, target string, created time.Time) (*Attempt, *transport.Conn) {
	t.Helper()

	ctx, cancel := context.WithCancelCause(context.Background())
	lb := transport.NewLoopback(ports.DefaultDialProfile(), nil)
	pc, err := lb.Open(ctx, nil)
	require.NoError(t, err)

	conn := pc.(*transport.Conn)
	a := &Attempt{
		id:      id,
		target:  target,
		conn:    conn,
		gate:    NewResponseGate(),
		created: created,
		ctx:     ctx,
		cancel:  cancel,
		log:     zerolog.Nop(),
		state:   core.StateInitializing,
	}
	return a, conn
}
