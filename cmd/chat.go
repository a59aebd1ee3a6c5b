package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/database"
	"github.com/parley-chat/parley/internal/gemini"
	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/speech"
	"github.com/parley-chat/parley/internal/store"
	"github.com/parley-chat/parley/internal/tui"
)

var (
	chatSessionID string
	chatNew       bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "resume a specific session by ID")
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "start a fresh session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Please run:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return err
	}

	releaseLock, err := store.AcquireDataDirLock(cfg.DataDir)
	if err != nil {
		if errors.Is(err, store.ErrDataDirLocked) {
			return fmt.Errorf("another parley instance is already running in %s", cfg.DataDir)
		}
		return err
	}
	defer releaseLock()

	logger, closeLog, err := newFileLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	st, err := store.New(db, logger)
	if err != nil {
		return err
	}

	session, err := resolveSession(ctx, st, cfg)
	if err != nil {
		return err
	}
	if err := store.SaveCurrentSessionID(cfg.DataDir, session.ID); err != nil {
		logger.Warn("saving current session", "error", err)
	}

	client, err := gemini.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	recognizer := speech.Detect(cfg.Speech.Command, cfg.Speech.Args, logger)

	model, err := tui.New(ctx, tui.Options{
		Client:     client,
		Store:      st,
		Session:    session,
		Recognizer: recognizer,
		Config:     cfg,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}

// resolveSession picks the session to chat in: an explicit --session
// flag wins, --new forces a fresh one, otherwise the saved current
// session is resumed when it still exists.
func resolveSession(ctx context.Context, st *store.Store, cfg *config.Config) (*store.Session, error) {
	if chatSessionID != "" {
		id, err := uuid.Parse(chatSessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid session ID %q: %w", chatSessionID, err)
		}
		return st.GetSession(ctx, id)
	}

	if !chatNew {
		if id, err := store.LoadCurrentSessionID(cfg.DataDir); err == nil && id != nil {
			session, err := st.GetSession(ctx, *id)
			if err == nil {
				return session, nil
			}
			if !errors.Is(err, store.ErrSessionNotFound) {
				return nil, err
			}
			// Stale pointer: fall through and create a new session.
		}
	}

	return st.CreateSession(ctx, "", cfg.ModelName)
}

// newFileLogger writes structured logs to <dataDir>/parley.log so log
// output never corrupts the terminal UI.
func newFileLogger(cfg *config.Config) (log.Logger, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(cfg.DataDir, "parley.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := log.NewWithWriter(f, log.Config{})
	return logger, func() { _ = f.Close() }, nil
}
