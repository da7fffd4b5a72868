package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ym-bot/internal/client/yandex"
	"ym-bot/internal/config"
	"ym-bot/internal/fetch"
	"ym-bot/internal/services/delivery"
	"ym-bot/internal/services/inline"
	"ym-bot/internal/services/music"
	"ym-bot/internal/tagger"
	"ym-bot/internal/transport/telegram"
	"ym-bot/internal/transport/web"
)

const shutdownGrace = 30 * time.Second

func run(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := &http.Client{Timeout: 20 * time.Second}
	ymClient := yandex.NewClient(apiClient, cfg.YandexToken, logger)
	musicService := music.NewService(ymClient, logger)

	acquirer := fetch.NewAcquirer(nil, logger)
	pipeline := delivery.NewPipeline(musicService, acquirer, tagger.New(logger), logger)
	launcher := delivery.NewLauncher(pipeline, cfg.MaxParallelDownloads, cfg.DownloadTimeout, logger)

	bot, err := telegram.NewBot(cfg.TelegramToken, telegram.Deps{
		Searcher:    musicService,
		Inline:      inline.NewAdapter(musicService, cfg.InlineTimeout, logger),
		Downloader:  launcher,
		SearchLimit: cfg.SearchLimit,
	}, logger)
	if err != nil {
		return err
	}

	var hook *web.Webhook
	if cfg.BotMode == config.ModeWebhook {
		hook = &web.Webhook{
			Path:    cfg.WebhookPath,
			Secret:  cfg.WebhookSecret,
			Handler: bot.WebhookHandler(ctx),
		}
	}
	server := web.NewServer(musicService, acquirer, hook, logger)

	logger.Info("bot is starting",
		zap.String("bot", bot.Username()),
		zap.String("mode", cfg.BotMode),
		zap.String("httpAddr", cfg.HTTPAddr))

	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTPAddr != "" {
		g.Go(func() error {
			return server.ListenAndServe(gctx, cfg.HTTPAddr)
		})
	}
	if cfg.BotMode == config.ModePolling {
		g.Go(func() error {
			err := bot.Start(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()

	waitCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if werr := bot.Wait(waitCtx); werr != nil {
		logger.Warn("update handlers still running at shutdown", zap.Error(werr))
	}
	if werr := launcher.Wait(waitCtx); werr != nil {
		logger.Warn("downloads still running at shutdown", zap.Error(werr))
	}

	logger.Info("bot stopped")
	return err
}
