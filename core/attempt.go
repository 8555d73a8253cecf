package core

import "strings"

// State tracks where a pairing attempt is in its lifecycle. Open, Closed,
// TimedOut and Failed are terminal; exactly one of them is reached per
// attempt.
type State int

const (
	StateInitializing State = iota
	StateCodeIssued
	StateAwaitingConfirmation
	StateOpen
	StateClosed
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateCodeIssued:
		return "code_issued"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the attempt.
func (s State) Terminal() bool {
	switch s {
	case StateOpen, StateClosed, StateTimedOut, StateFailed:
		return true
	}
	return false
}

// Mode selects how an attempt authorizes the link: a numeric pairing code
// requested from the transport, or a scannable QR payload emitted by it.
type Mode int

const (
	ModePairingCode Mode = iota
	ModeQR
)

func (m Mode) String() string {
	if m == ModeQR {
		return "qr"
	}
	return "pairing_code"
}

// OutcomeKind tags the single terminal result delivered to the HTTP caller.
type OutcomeKind int

const (
	// OutcomePairingCode carries the formatted code the user types on the
	// phone.
	OutcomePairingCode OutcomeKind = iota
	// OutcomeQR carries the rendered QR image as a data URL.
	OutcomeQR
	// OutcomeConnected reports a fully established session, including the
	// portable session string.
	OutcomeConnected
	// OutcomeFailure carries the mapped error for any failed attempt.
	OutcomeFailure
)

// Outcome is the one terminal result of a pairing attempt. Exactly one
// Outcome is produced per attempt no matter how many transport events fire.
type Outcome struct {
	Kind          OutcomeKind
	SessionID     string
	PairingCode   string
	QRCode        string
	SessionString string
	DownloadToken string
	Message       string

	// Failure details; Err is nil unless Kind is OutcomeFailure.
	Err               error
	Disconnect        *Disconnect
	Suggestion        string
	ExistingSessionID string
}

// ValidateSessionID rejects ids that are empty, oversized or unsafe to use
// as a credential directory name.
func ValidateSessionID(id string) error {
	if id == "" || len(id) > 128 {
		return ErrInvalidSessionID
	}
	if strings.ContainsAny(id, "/\\") || id == "." || id == ".." {
		return ErrInvalidSessionID
	}
	return nil
}
