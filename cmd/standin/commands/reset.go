package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/standinhq/standin/pkg/standin/config"
	"github.com/standinhq/standin/pkg/standin/store"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored session and contact allow-list",
		Long: `Removes the saved Telegram session and the contact allow-list so the
next run starts from a fresh login and contact selection.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
			st := store.New(cfg.SessionFile, cfg.ContactsFile, logger)
			if err := st.Reset(); err != nil {
				return fmt.Errorf("resetting state: %w", err)
			}

			fmt.Println("Session and allow-list removed.")
			return nil
		},
	}
}
