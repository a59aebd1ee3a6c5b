package store

import (
	"testing"

	"github.com/google/uuid"
)

func TestCurrentSessionState_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	// No state file yet.
	got, err := LoadCurrentSessionID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentSessionID: %v", err)
	}
	if got != nil {
		t.Errorf("got %v before any save, want nil", got)
	}

	id := uuid.New()
	if err := SaveCurrentSessionID(dir, id); err != nil {
		t.Fatalf("SaveCurrentSessionID: %v", err)
	}

	got, err = LoadCurrentSessionID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentSessionID: %v", err)
	}
	if got == nil || *got != id {
		t.Errorf("got %v, want %v", got, id)
	}

	if err := ClearCurrentSessionID(dir); err != nil {
		t.Fatalf("ClearCurrentSessionID: %v", err)
	}
	got, err = LoadCurrentSessionID(dir)
	if err != nil {
		t.Fatalf("LoadCurrentSessionID after clear: %v", err)
	}
	if got != nil {
		t.Errorf("got %v after clear, want nil", got)
	}

	// Clear is idempotent.
	if err := ClearCurrentSessionID(dir); err != nil {
		t.Errorf("second clear: %v", err)
	}
}
