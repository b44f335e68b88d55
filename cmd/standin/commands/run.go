package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/standinhq/standin/pkg/standin/config"
	"github.com/standinhq/standin/pkg/standin/console"
	"github.com/standinhq/standin/pkg/standin/convo"
	"github.com/standinhq/standin/pkg/standin/engine"
	"github.com/standinhq/standin/pkg/standin/llm"
	"github.com/standinhq/standin/pkg/standin/onboard"
	"github.com/standinhq/standin/pkg/standin/store"
	"github.com/standinhq/standin/pkg/standin/transport"
	"github.com/standinhq/standin/pkg/standin/transport/telegram"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Telegram and start answering allow-listed contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			verbose, _ := cmd.Flags().GetBool("verbose")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg, verbose)
			slog.SetDefault(logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runBot(ctx, cfg, logger)
		},
	}
}

func runBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	st := store.New(cfg.SessionFile, cfg.ContactsFile, logger)

	term, err := console.New()
	if err != nil {
		return fmt.Errorf("opening console: %w", err)
	}
	defer term.Close()

	model := llm.New(cfg.OllamaURL, cfg.Model, logger)

	tr := telegram.New(telegram.Config{
		APIID:   cfg.APIID,
		APIHash: cfg.APIHash,
	}, st.Credentials(), term, logger)

	err = tr.Run(ctx, func(ctx context.Context, conn transport.Transport) error {
		allow := st.LoadAllowList()
		if len(allow) == 0 {
			selected, err := onboard.Run(ctx, conn, term, st, cfg.DialogLimit, logger)
			if err != nil {
				return err
			}
			allow = selected
		}
		logger.Info("allow-list loaded", "contacts", len(allow))

		convos := convo.NewStore()
		if err := convo.Hydrate(ctx, conn, convos, allow, cfg.HistoryLimit, logger); err != nil {
			return err
		}

		eng := engine.New(engine.Config{
			Streaming:      cfg.Streaming,
			MaxReplyTokens: cfg.MaxReplyTokens,
			TypingRefresh:  cfg.TypingRefresh,
		}, conn, model, convos, allow, logger)

		tr.OnMessage(eng.HandleMessage)
		logger.Info("bot ready", "model", model.Model(), "streaming", cfg.Streaming)
		return nil
	})
	// A clean Ctrl-C shutdown is not an error.
	if err != nil && errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(cfg *config.Config, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}
