package core

import "errors"

var (
	// ErrInvalidPhone is returned when a phone number normalizes to fewer
	// than 10 or more than 15 digits
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidSessionID is returned when a caller-supplied session id is
	// empty or not safe to use as a directory name
	ErrInvalidSessionID = errors.New("invalid session id")

	// ErrSessionNotFound is returned when no credential directory exists
	// for the requested session id
	ErrSessionNotFound = errors.New("session not found")

	// ErrNumberBusy is returned when a pairing attempt is already running
	// for the same phone number
	ErrNumberBusy = errors.New("number is already being paired")

	// ErrAttemptTimeout is returned when no open or close event arrives
	// within the attempt's wait budget
	ErrAttemptTimeout = errors.New("pairing attempt timed out")

	// ErrAttemptReplaced is returned when a newer attempt for the same
	// session id evicts this one
	ErrAttemptReplaced = errors.New("pairing attempt replaced by a newer one")

	// ErrCodeRequestFailed is returned when every pairing-code request
	// retry has been exhausted
	ErrCodeRequestFailed = errors.New("pairing code request failed")

	// ErrConnectionClosed is returned when the transport closes the
	// connection before pairing completed
	ErrConnectionClosed = errors.New("connection closed before pairing completed")

	// ErrShuttingDown is returned when the process drains all attempts on
	// shutdown
	ErrShuttingDown = errors.New("service is shutting down")

	// ErrInvalidToken is returned when a download token is missing,
	// malformed or signed for a different session
	ErrInvalidToken = errors.New("invalid token")
)
