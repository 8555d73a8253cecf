package ports

import (
	"context"
	"time"
)

// AuthState is the opaque credential material identifying a paired device
// session. It is stored as a set of named blobs matching the wire library's
// multi-file layout and is never interpreted by the coordinator.
type AuthState map[string][]byte

// Clone returns a deep copy so a persisted snapshot cannot be mutated by
// later credential updates.
func (a AuthState) Clone() AuthState {
	if a == nil {
		return nil
	}
	out := make(AuthState, len(a))
	for name, blob := range a {
		cp := make([]byte, len(blob))
		copy(cp, blob)
		out[name] = cp
	}
	return out
}

// EventKind tags events emitted by a transport connection.
type EventKind int

const (
	// EventQR carries a raw QR payload; zero or more may arrive while a
	// connection negotiates.
	EventQR EventKind = iota
	// EventOpen signals an established, authenticated connection.
	EventOpen
	// EventClose signals the connection closed; ReasonCode carries the
	// wire-protocol status.
	EventClose
	// EventCredsUpdated signals rotated key material that must be
	// persisted.
	EventCredsUpdated
)

// Event is one item of the transport's asynchronous stream. Delivery order
// and multiplicity are not guaranteed: consumers must treat the first open
// or close as authoritative and ignore duplicates.
type Event struct {
	Kind       EventKind
	QR         string
	ReasonCode int
	Err        error
	Creds      AuthState
}

// DialProfile is the fixed configuration applied to every connection.
type DialProfile struct {
	ConnectTimeout    time.Duration
	KeepAliveInterval time.Duration
	BrowserName       string
	BrowserOS         string
	BrowserVersion    string
	PrintQRInTerminal bool
	SyncFullHistory   bool
}

// DefaultDialProfile mirrors the identity and timing profile the pairing
// service has always presented to the messaging network.
func DefaultDialProfile() DialProfile {
	return DialProfile{
		ConnectTimeout:    60 * time.Second,
		KeepAliveInterval: 10 * time.Second,
		BrowserName:       "Chrome",
		BrowserOS:         "Ubuntu",
		BrowserVersion:    "20.0.04",
		PrintQRInTerminal: false,
		SyncFullHistory:   false,
	}
}

// Connection is a live link to the messaging network, exclusively owned by
// one pairing attempt until Close.
type Connection interface {
	// Events returns the connection's event stream. The channel is closed
	// when the underlying link shuts down.
	Events() <-chan Event

	// RequestPairingCode asks the network for a one-time numeric code the
	// user enters on their phone.
	RequestPairingCode(ctx context.Context, digits string) (string, error)

	// SendMessage delivers a text message to the target number.
	SendMessage(ctx context.Context, target, text string) error

	// Close tears the link down. Safe to call more than once.
	Close() error
}

// Transport builds connections with a fixed dial profile. Negotiation starts
// asynchronously: the returned Connection is usable immediately and callers
// must wait for events, not a synchronous ready state.
type Transport interface {
	Open(ctx context.Context, auth AuthState) (Connection, error)
}
