package models

import "testing"

func TestLookup_KnownID(t *testing.T) {
	m := Lookup("gemini-1.5-pro")
	if m.ID != "gemini-1.5-pro" {
		t.Errorf("Lookup returned %q, want gemini-1.5-pro", m.ID)
	}
	if m.Name != "Gemini 1.5 Pro" {
		t.Errorf("display name = %q", m.Name)
	}
}

func TestLookup_UnknownFallsBackToDefault(t *testing.T) {
	for _, id := range []string{"", "gpt-4o", "gemini-99"} {
		m := Lookup(id)
		if m.ID != DefaultID {
			t.Errorf("Lookup(%q) = %q, want default %q", id, m.ID, DefaultID)
		}
	}
}

func TestRegistry_ContainsDefault(t *testing.T) {
	found := false
	for _, m := range Registry {
		if m.ID == DefaultID {
			found = true
		}
	}
	if !found {
		t.Fatalf("registry must contain default model %q", DefaultID)
	}
}

func TestRegistry_OrderStable(t *testing.T) {
	// The selector renders the registry in declaration order; the default
	// model leads the list.
	if Registry[0].ID != DefaultID {
		t.Errorf("first registry entry = %q, want %q", Registry[0].ID, DefaultID)
	}
}
