package transport

import (
	"context"
	"sync"

	"github.com/pairgate/pairgate/ports"
)

// Loopback is an in-memory Transport. It stands in for the real
// wire-protocol client in development and in tests: every connection's
// event stream is driven by the caller through Emit, and pairing-code
// requests are answered by a pluggable function.
type Loopback struct {
	profile ports.DialProfile
	onOpen  func(*Conn)

	mu    sync.Mutex
	conns []*Conn
}

// NewLoopback returns a loopback transport. onOpen, when non-nil, runs in
// its own goroutine for every connection so a script can drive the event
// stream.
func NewLoopback(profile ports.DialProfile, onOpen func(*Conn)) *Loopback {
	return &Loopback{profile: profile, onOpen: onOpen}
}

// Open fabricates a connection. Negotiation is whatever the onOpen script
// makes of it.
func (l *Loopback) Open(_ context.Context, auth ports.AuthState) (ports.Connection, error) {
	c := &Conn{
		auth:   auth.Clone(),
		events: make(chan ports.Event, 16),
		code: func(string) (string, error) {
			return "12345678", nil
		},
	}

	l.mu.Lock()
	l.conns = append(l.conns, c)
	l.mu.Unlock()

	if l.onOpen != nil {
		go l.onOpen(c)
	}
	return c, nil
}

// Conns returns every connection opened so far.
func (l *Loopback) Conns() []*Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Conn, len(l.conns))
	copy(out, l.conns)
	return out
}

// Conn is one loopback connection.
type Conn struct {
	auth   ports.AuthState
	events chan ports.Event

	mu         sync.Mutex
	closed     bool
	closeCalls int
	sent       []SentMessage
	code       func(digits string) (string, error)
	sendErr    error
}

// SentMessage records one SendMessage call.
type SentMessage struct {
	Target string
	Text   string
}

// Events implements ports.Connection.
func (c *Conn) Events() <-chan ports.Event {
	return c.events
}

// Emit pushes an event into the stream. Events after Close are dropped,
// mirroring a real link that has gone away.
func (c *Conn) Emit(ev ports.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// SetCodeFunc replaces the pairing-code responder.
func (c *Conn) SetCodeFunc(fn func(digits string) (string, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code = fn
}

// SetSendError makes every SendMessage call fail with err.
func (c *Conn) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

// RequestPairingCode implements ports.Connection.
func (c *Conn) RequestPairingCode(ctx context.Context, digits string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	fn := c.code
	c.mu.Unlock()
	return fn(digits)
}

// SendMessage implements ports.Connection, recording the delivery.
func (c *Conn) SendMessage(_ context.Context, target, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, SentMessage{Target: target, Text: text})
	return nil
}

// Sent returns every recorded delivery.
func (c *Conn) Sent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SentMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

// Close implements ports.Connection. The event channel closes with the
// connection so consumers observe the stream ending.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalls++
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.events)
	return nil
}

// CloseCalls reports how many times Close was invoked.
func (c *Conn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// Closed reports whether the connection has been closed.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ ports.Transport = (*Loopback)(nil)
var _ ports.Connection = (*Conn)(nil)
