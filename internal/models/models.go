// Package models holds the registry of selectable Gemini models.
package models

// Model pairs a Gemini model identifier with its display name.
type Model struct {
	ID   string
	Name string
}

// DefaultID is the fallback model used when a configured or stored id is
// not present in the registry.
const DefaultID = "gemini-2.0-flash-exp"

// Registry lists selectable models in display order. The selector
// iterates this slice directly, so order here is order on screen.
var Registry = []Model{
	{ID: "gemini-2.0-flash-exp", Name: "Gemini 2.0 Flash (Experimental)"},
	{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
	{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash"},
	{ID: "gemini-1.5-flash-8b", Name: "Gemini 1.5 Flash 8B"},
}

// Lookup returns the registry entry for id, falling back to the entry
// for DefaultID when id is unknown or empty.
func Lookup(id string) Model {
	var fallback Model
	for _, m := range Registry {
		if m.ID == id {
			return m
		}
		if m.ID == DefaultID {
			fallback = m
		}
	}
	return fallback
}

// DisplayName returns the display name for id, with the same fallback
// behavior as Lookup.
func DisplayName(id string) string {
	return Lookup(id).Name
}
