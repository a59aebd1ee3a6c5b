package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/database"
	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), runSessionsList)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store, _ *config.Config) error {
			return runSessionsShow(ctx, st, args[0])
		})
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store, cfg *config.Config) error {
			return runSessionsDelete(ctx, st, cfg, args[0])
		})
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// withStore opens the store, runs fn, and closes everything.
func withStore(ctx context.Context, fn func(context.Context, *store.Store, *config.Config) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	st, err := store.New(db, log.NewNop())
	if err != nil {
		return err
	}
	return fn(ctx, st, cfg)
}

func runSessionsList(ctx context.Context, st *store.Store, _ *config.Config) error {
	sessions, err := st.ListSessions(ctx, 100)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMODEL\tUPDATED")
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.ID, title, models.DisplayName(s.ModelName),
			s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSessionsShow(ctx context.Context, st *store.Store, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}
	session, err := st.GetSession(ctx, id)
	if err != nil {
		return err
	}

	title := session.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Printf("%s (%s)\n\n", title, models.DisplayName(session.ModelName))

	msgs, err := st.Messages(ctx, id, 0)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}
	for _, msg := range msgs {
		prefix := "You"
		if msg.Role == store.RoleModel {
			prefix = "Parley"
		}
		fmt.Printf("%s> %s", prefix, msg.Content)
		if msg.AttachmentCount > 0 {
			fmt.Printf("  [%d image(s)]", msg.AttachmentCount)
		}
		fmt.Print("\n\n")
	}
	return nil
}

func runSessionsDelete(ctx context.Context, st *store.Store, cfg *config.Config, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}
	if err := st.DeleteSession(ctx, id); err != nil {
		return err
	}

	// Drop a stale current-session pointer.
	if current, err := store.LoadCurrentSessionID(cfg.DataDir); err == nil && current != nil && *current == id {
		if err := store.ClearCurrentSessionID(cfg.DataDir); err != nil {
			return err
		}
	}

	fmt.Printf("Deleted session %s\n", id)
	return nil
}
