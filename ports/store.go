package ports

import "io"

// CredentialStore persists per-session authentication material. The
// coordinator only ever goes through this interface; the on-disk encoding
// belongs to the store.
type CredentialStore interface {
	// Load returns the stored state for a session id, or an empty state
	// for an id that has never been seen.
	Load(sessionID string) (AuthState, error)

	// Save overwrites the stored state for a session id.
	Save(sessionID string, state AuthState) error

	// Delete removes all stored material for a session id. No-op when
	// absent.
	Delete(sessionID string) error

	// Exists reports whether any material is stored for a session id.
	Exists(sessionID string) bool

	// Archive writes the session's credential directory as a zip archive.
	// Returns core.ErrSessionNotFound when nothing is stored.
	Archive(sessionID string, w io.Writer) error

	// SessionString encodes state into the portable resumption token
	// handed back to the caller.
	SessionString(state AuthState) (string, error)
}
