// Package commands implements the standin CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "standin",
		Short: "Standin - personal Telegram auto-reply bot",
		Long: `Standin answers private Telegram messages on your behalf using a
local Ollama model. It logs in with your own account, lets you pick which
contacts it may answer, and keeps one running conversation per contact.

Examples:
  standin run
  standin run --config standin.yaml
  standin reset`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newResetCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
