package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/database"
	"github.com/parley-chat/parley/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "parley.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating database: %v", err)
	}

	s, err := New(db, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx, "First chat", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Error("session ID not assigned")
	}

	got, err := s.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "First chat" || got.ModelName != "gemini-2.0-flash-exp" {
		t.Errorf("got %+v, want title and model preserved", got)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), uuid.New())
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, "older", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	second, err := s.CreateSession(ctx, "newer", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Appending touches updated_at, promoting the session.
	time.Sleep(10 * time.Millisecond)
	if _, err := s.AppendMessage(ctx, first.ID, RoleUser, "hi", 0); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	sessions, err := s.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != first.ID {
		t.Error("recently touched session should list first")
	}
	if sessions[1].ID != second.ID {
		t.Error("untouched session should list last")
	}
}

func TestDeleteSession_CascadesMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, RoleUser, "hello", 0); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}

	msgs, err := s.Messages(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after cascade delete, want 0", len(msgs))
	}

	if err := s.DeleteSession(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete err = %v, want ErrSessionNotFound", err)
	}
}

func TestAppendMessage_SequenceIsDense(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	for i, turn := range []struct {
		role    string
		content string
	}{
		{RoleUser, "question"},
		{RoleModel, "answer"},
		{RoleUser, "follow-up"},
	} {
		msg, err := s.AppendMessage(ctx, session.ID, turn.role, turn.content, 0)
		if err != nil {
			t.Fatalf("AppendMessage %d: %v", i, err)
		}
		if msg.Sequence != i+1 {
			t.Errorf("sequence = %d, want %d", msg.Sequence, i+1)
		}
	}
}

func TestAppendMessage_Validation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, err := s.AppendMessage(ctx, session.ID, "assistant", "x", 0); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}
	if _, err := s.AppendMessage(ctx, uuid.New(), RoleUser, "x", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestMessages_LimitKeepsMostRecentInOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := 0; i < 5; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleModel
		}
		if _, err := s.AppendMessage(ctx, session.ID, role, "turn", 0); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	msgs, err := s.Messages(ctx, session.ID, 3)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Sequence != i+3 {
			t.Errorf("messages[%d].Sequence = %d, want %d (most recent window, ascending)",
				i, msg.Sequence, i+3)
		}
	}
}

func TestSetSessionTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx, "", "gemini-2.0-flash-exp")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := s.SetSessionTitle(ctx, session.ID, "Renamed"); err != nil {
		t.Fatalf("SetSessionTitle: %v", err)
	}
	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", got.Title)
	}

	if err := s.SetSessionTitle(ctx, uuid.New(), "x"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}
