package credstore

import (
	"archive/zip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/pairgate/pairgate/core"
	"github.com/pairgate/pairgate/ports"
)

// FileStore keeps each session's authentication material as one directory of
// blobs under a common root, matching the wire library's multi-file layout.
type FileStore struct {
	root string
	log  zerolog.Logger
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string, log zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating sessions directory: %w", err)
	}
	return &FileStore{
		root: root,
		log:  log.With().Str("component", "credstore").Logger(),
	}, nil
}

func (s *FileStore) sessionDir(sessionID string) string {
	return filepath.Join(s.root, sessionID)
}

// Load reads every blob of the session directory. An id that was never saved
// yields an empty state, not an error.
func (s *FileStore) Load(sessionID string) (ports.AuthState, error) {
	dir := s.sessionDir(sessionID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return ports.AuthState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session directory: %w", err)
	}

	state := make(ports.AuthState, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		blob, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading credential file %s: %w", entry.Name(), err)
		}
		state[entry.Name()] = blob
	}
	return state, nil
}

// Save overwrites the session directory with the given state. Each blob is
// written to a temp file first and renamed into place so a crash never
// leaves a half-written credential file.
func (s *FileStore) Save(sessionID string, state ports.AuthState) error {
	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	for name, blob := range state {
		if filepath.Base(name) != name {
			return fmt.Errorf("%w: credential file name %q", core.ErrInvalidSessionID, name)
		}
		tmp := filepath.Join(dir, name+".tmp")
		if err := os.WriteFile(tmp, blob, 0o600); err != nil {
			return fmt.Errorf("writing credential file %s: %w", name, err)
		}
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("renaming credential file %s: %w", name, err)
		}
	}
	return nil
}

// Delete removes the whole session directory. No-op for unknown ids.
func (s *FileStore) Delete(sessionID string) error {
	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("removing session directory: %w", err)
	}
	return nil
}

// Exists reports whether a session directory is on disk.
func (s *FileStore) Exists(sessionID string) bool {
	info, err := os.Stat(s.sessionDir(sessionID))
	return err == nil && info.IsDir()
}

// Archive writes the session directory as a zip, one entry per blob.
func (s *FileStore) Archive(sessionID string, w io.Writer) error {
	if !s.Exists(sessionID) {
		return core.ErrSessionNotFound
	}

	dir := s.sessionDir(sessionID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading session directory: %w", err)
	}

	zw := zip.NewWriter(w)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := zw.Create(entry.Name())
		if err != nil {
			return fmt.Errorf("creating archive entry %s: %w", entry.Name(), err)
		}
		blob, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("reading credential file %s: %w", entry.Name(), err)
		}
		if _, err := f.Write(blob); err != nil {
			return fmt.Errorf("writing archive entry %s: %w", entry.Name(), err)
		}
	}
	return zw.Close()
}

// SessionString encodes the state as base64 of its JSON form, the portable
// resumption token handed back to callers.
func (s *FileStore) SessionString(state ports.AuthState) (string, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encoding session string: %w", err)
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

var _ ports.CredentialStore = (*FileStore)(nil)
