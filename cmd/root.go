// Package cmd implements the parley command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - a Gemini chat client for your terminal",
	Long: `Parley is a terminal chat client for Google's Gemini models.

It keeps conversations in a local SQLite database, attaches images to
messages, switches models mid-conversation, and takes voice dictation
through a configurable transcriber command.

Running parley with no arguments starts an interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
