package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ym-bot/internal/config"
	"ym-bot/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:           "ym-bot",
	Short:         "Telegram bot that finds and sends tracks from Yandex Music.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync() // best-effort flush

		return run(cmd.Context(), cfg, logger)
	},
}

func main() {
	// Load .env when running locally; ignored if file is absent.
	_ = godotenv.Load()

	rootCmd.AddCommand(webhookCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, utils.FileOptions{
		Path:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	if err != nil {
		return cfg, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
