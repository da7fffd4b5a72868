package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ym-bot/internal/config"
)

const webhookRetries = 5

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage the Telegram webhook registration.",
}

var webhookSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Register WEBHOOK_HOST + WEBHOOK_PATH with Telegram.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAPI(cmd.Context(), func(ctx context.Context, cfg config.Config, api *tgbotapi.BotAPI, logger *zap.Logger) error {
			if cfg.WebhookHost == "" {
				return errors.New("WEBHOOK_HOST is required")
			}
			params := tgbotapi.Params{}
			params.AddNonEmpty("url", cfg.WebhookURL())
			params.AddNonEmpty("secret_token", cfg.WebhookSecret)

			err := retry(ctx, func() error {
				_, err := api.MakeRequest("setWebhook", params)
				return err
			})
			if err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			logger.Info("webhook registered", zap.String("url", cfg.WebhookURL()))
			return nil
		})
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the webhook so the bot can long-poll.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAPI(cmd.Context(), func(ctx context.Context, _ config.Config, api *tgbotapi.BotAPI, logger *zap.Logger) error {
			err := retry(ctx, func() error {
				_, err := api.Request(tgbotapi.DeleteWebhookConfig{})
				return err
			})
			if err != nil {
				return fmt.Errorf("delete webhook: %w", err)
			}
			logger.Info("webhook deleted")
			return nil
		})
	},
}

var webhookInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the current webhook status.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withAPI(cmd.Context(), func(ctx context.Context, _ config.Config, api *tgbotapi.BotAPI, _ *zap.Logger) error {
			var info tgbotapi.WebhookInfo
			err := retry(ctx, func() error {
				var err error
				info, err = api.GetWebhookInfo()
				return err
			})
			if err != nil {
				return fmt.Errorf("webhook info: %w", err)
			}

			out := cmd.OutOrStdout()
			if info.URL == "" {
				fmt.Fprintln(out, "webhook: not set (long polling)")
				return nil
			}
			fmt.Fprintf(out, "webhook: %s\npending updates: %d\n", info.URL, info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "last error: %s\n", info.LastErrorMessage)
			}
			return nil
		})
	},
}

func init() {
	webhookCmd.AddCommand(webhookSetCmd, webhookDeleteCmd, webhookInfoCmd)
}

func withAPI(ctx context.Context, fn func(context.Context, config.Config, *tgbotapi.BotAPI, *zap.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	var api *tgbotapi.BotAPI
	err = retry(ctx, func() error {
		var err error
		api, err = tgbotapi.NewBotAPI(cfg.TelegramToken)
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram auth: %w", err)
	}
	return fn(ctx, cfg, api, logger)
}

func retry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), webhookRetries), ctx)
	return backoff.Retry(op, policy)
}
