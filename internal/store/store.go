// Package store persists chat sessions and their messages in SQLite.
//
// Store is safe for concurrent use by multiple goroutines; SQLite
// serializes writers underneath database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/parley-chat/parley/internal/log"
)

// Message roles as stored. These match the wire roles the model API
// uses, so history rows map straight onto request turns.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside user/model.
	ErrInvalidRole = errors.New("invalid message role")
)

// Session is one conversation.
type Session struct {
	ID        uuid.UUID
	Title     string
	ModelName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn within a session. Sequence is dense and
// ascending within the session, starting at 1.
type Message struct {
	ID              uuid.UUID
	SessionID       uuid.UUID
	Sequence        int
	Role            string
	Content         string
	AttachmentCount int
	CreatedAt       time.Time
}

// Store manages session and message persistence.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// New creates a Store on an already opened and migrated database.
func New(db *sql.DB, logger log.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}, nil
}

// CreateSession creates a new session. Title may be empty; it is
// usually filled in later from the first user message.
func (s *Store) CreateSession(ctx context.Context, title, modelName string) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.New(),
		Title:     title,
		ModelName: modelName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, model_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		session.ID.String(), nullable(title), modelName, now, now)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "model", modelName)
	return session, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, model_name, created_at, updated_at
		 FROM sessions WHERE id = ?`, id.String())

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// ListSessions returns sessions ordered by most recently updated.
// A non-positive limit returns all sessions.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT id, title, model_name, created_at, updated_at
	          FROM sessions ORDER BY updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and, via cascade, its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// SetSessionTitle updates a session's title.
func (s *Store) SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?",
		nullable(title), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("updating session title: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating session title: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// AppendMessage stores the next message in a session. The sequence
// number is assigned inside a transaction so concurrent appends cannot
// collide, and the session's updated_at is touched in the same
// transaction.
func (s *Store) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string, attachmentCount int) (*Message, error) {
	if role != RoleUser && role != RoleModel {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM sessions WHERE id = ?", sessionID.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking session: %w", err)
	}

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE session_id = ?",
		sessionID.String()).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("computing sequence: %w", err)
	}

	now := time.Now().UTC()
	msg := &Message{
		ID:              uuid.New(),
		SessionID:       sessionID,
		Sequence:        next,
		Role:            role,
		Content:         content,
		AttachmentCount: attachmentCount,
		CreatedAt:       now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sequence, role, content, attachment_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), sessionID.String(), next, role, content, attachmentCount, now)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", now, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return msg, nil
}

// Messages returns a session's messages in sequence order. A positive
// limit returns only the most recent messages, still in ascending
// order, which is the shape conversation history wants.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit int) ([]*Message, error) {
	query := `SELECT id, session_id, sequence, role, content, attachment_count, created_at
	          FROM messages WHERE session_id = ? ORDER BY sequence`
	args := []any{sessionID.String()}
	if limit > 0 {
		query = `SELECT * FROM (
		           SELECT id, session_id, sequence, role, content, attachment_count, created_at
		           FROM messages WHERE session_id = ? ORDER BY sequence DESC LIMIT ?
		         ) ORDER BY sequence`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var (
			msg       Message
			id        string
			sessionID string
		)
		err := rows.Scan(&id, &sessionID, &msg.Sequence, &msg.Role,
			&msg.Content, &msg.AttachmentCount, &msg.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if msg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing message id: %w", err)
		}
		if msg.SessionID, err = uuid.Parse(sessionID); err != nil {
			return nil, fmt.Errorf("parsing session id: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session Session
		id      string
		title   sql.NullString
	)
	err := row.Scan(&id, &title, &session.ModelName,
		&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if session.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing session id: %w", err)
	}
	session.Title = title.String
	return &session, nil
}

// nullable maps an empty string to NULL so blank titles do not store
// empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
