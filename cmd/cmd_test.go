package cmd

import (
	"context"
	"testing"

	"github.com/parley-chat/parley/internal/store"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"chat":     false,
		"ask":      false,
		"sessions": false,
		"version":  false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestRootRunsChat(t *testing.T) {
	if rootCmd.RunE == nil {
		t.Fatal("root command should run chat by default")
	}
}

func TestSessionsShow_InvalidID(t *testing.T) {
	if err := runSessionsShow(context.Background(), &store.Store{}, "not-a-uuid"); err == nil {
		t.Error("expected error for malformed session ID")
	}
}
