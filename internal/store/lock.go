package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrDataDirLocked reports that another process already owns the data
// directory.
var ErrDataDirLocked = errors.New("data directory locked by another instance")

const instanceLockFile = "parley.lock"

// AcquireDataDirLock takes an exclusive lock on the data directory so
// two instances never share one database. The lock is held until the
// returned release func runs; callers keep it for the process lifetime.
func AcquireDataDirLock(dataDir string) (func(), error) {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, instanceLockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking data directory: %w", err)
	}
	if !ok {
		return nil, ErrDataDirLocked
	}
	return func() { _ = lock.Unlock() }, nil
}
