package store

import (
	"errors"
	"testing"
)

func TestAcquireDataDirLock_Exclusive(t *testing.T) {
	dir := t.TempDir()

	release, err := AcquireDataDirLock(dir)
	if err != nil {
		t.Fatalf("AcquireDataDirLock: %v", err)
	}

	if _, err := AcquireDataDirLock(dir); !errors.Is(err, ErrDataDirLocked) {
		t.Errorf("second acquire: err = %v, want ErrDataDirLocked", err)
	}

	release()
	release2, err := AcquireDataDirLock(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}

func TestAcquireDataDirLock_CreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"

	release, err := AcquireDataDirLock(dir)
	if err != nil {
		t.Fatalf("AcquireDataDirLock: %v", err)
	}
	release()
}
