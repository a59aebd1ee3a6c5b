package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// Local state: the active session ID lives in <dataDir>/current_session
// so a restarted chat resumes where it left off. Writes go through a
// temp file + rename under a file lock, so concurrent invocations
// cannot interleave partial writes.
const (
	stateFile = "current_session"
	lockFile  = "current_session.lock"
)

func statePath(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(dataDir, stateFile), nil
}

// LoadCurrentSessionID loads the active session ID. Returns (nil, nil)
// when no state file exists; that is not an error.
func LoadCurrentSessionID(dataDir string) (*uuid.UUID, error) {
	path, err := statePath(dataDir)
	if err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(dataDir, lockFile))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("locking state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID in state file: %w", err)
	}
	return &id, nil
}

// SaveCurrentSessionID marks a session as the active one.
func SaveCurrentSessionID(dataDir string, id uuid.UUID) error {
	path, err := statePath(dataDir)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(dataDir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(id.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// ClearCurrentSessionID removes the active session marker. Idempotent.
func ClearCurrentSessionID(dataDir string) error {
	path, err := statePath(dataDir)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(dataDir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
