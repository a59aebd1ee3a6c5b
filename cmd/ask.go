package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/parley-chat/parley/internal/attachment"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/gemini"
	"github.com/parley-chat/parley/internal/log"
	"github.com/parley-chat/parley/internal/models"
)

var (
	askModel  string
	askImages []string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a one-shot question without starting a session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model to use")
	askCmd.Flags().StringArrayVarP(&askImages, "image", "i", nil, "attach an image (repeatable)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	logger := log.New(log.Config{})

	client, err := gemini.New(ctx, cfg, logger)
	if err != nil {
		return err
	}

	modelID := askModel
	if modelID == "" {
		modelID = cfg.ModelName
	}
	modelID = models.Lookup(modelID).ID

	// One-shot attachments: stage, encode, release before exit.
	stagingDir, err := os.MkdirTemp("", "parley-ask-")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(stagingDir) }()

	var payloads []attachment.Payload
	for _, path := range askImages {
		att, err := attachment.Stage(stagingDir, path)
		if err != nil {
			return fmt.Errorf("attaching %s: %w", path, err)
		}
		payload, err := att.Encode()
		att.Release()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		payloads = append(payloads, payload)
	}

	var answered bool
	for chunk, err := range client.Stream(ctx, gemini.Request{
		Model:  modelID,
		Text:   strings.Join(args, " "),
		Images: payloads,
	}) {
		if err != nil {
			if answered {
				fmt.Println()
			}
			return err
		}
		answered = true
		fmt.Print(chunk)
	}
	if answered {
		fmt.Println()
	}
	return nil
}
