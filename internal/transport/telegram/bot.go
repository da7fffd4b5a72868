package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ym-bot/internal/services/delivery"
	"ym-bot/internal/services/inline"
	"ym-bot/internal/services/music"
)

const defaultSearchLimit = 5

// Searcher finds tracks for chat searches.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, fetchDownloadInfo bool) []music.TrackMetadata
}

// InlineAnswerer builds inline query answers.
type InlineAnswerer interface {
	Handle(ctx context.Context, query, botHandle string) []inline.Result
}

// Downloader starts a detached track delivery.
type Downloader interface {
	Launch(ctx context.Context, chat delivery.Chat, trackID string, status delivery.StatusMessage) bool
}

// Deps are the services the bot dispatches to.
type Deps struct {
	Searcher    Searcher
	Inline      InlineAnswerer
	Downloader  Downloader
	SearchLimit int
}

// Bot wraps Telegram API interactions.
type Bot struct {
	api      *tgbotapi.BotAPI
	sender   sender
	username string

	searcher    Searcher
	inline      InlineAnswerer
	downloader  Downloader
	searchLimit int

	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewBot authorizes against the Bot API and constructs a bot instance.
func NewBot(token string, deps Deps, logger *zap.Logger) (*Bot, error) {
	if deps.Searcher == nil || deps.Inline == nil || deps.Downloader == nil {
		return nil, fmt.Errorf("bot dependencies are incomplete")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	b := newBot(api, api.Self.UserName, deps, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, username string, deps Deps, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.SearchLimit <= 0 {
		deps.SearchLimit = defaultSearchLimit
	}
	return &Bot{
		sender:      s,
		username:    username,
		searcher:    deps.Searcher,
		inline:      deps.Inline,
		downloader:  deps.Downloader,
		searchLimit: deps.SearchLimit,
		logger:      logger,
	}
}

// Username is the bot handle without "@".
func (b *Bot) Username() string {
	return b.username
}

// Start drops any registered webhook, then long-polls until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot is not connected")
	}
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("delete webhook before polling failed", zap.Error(err))
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 10

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("polling started", zap.String("bot", b.username))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// WebhookHandler accepts updates posted by Telegram. Handling continues under
// ctx after the HTTP response is written.
func (b *Bot) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.logger.Warn("bad webhook payload", zap.Error(err))
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		b.dispatch(ctx, update)
		w.WriteHeader(http.StatusOK)
	})
}

// Wait blocks until in-flight update handlers return or ctx is done.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("update handler panicked", zap.Int("updateID", update.UpdateID), zap.Any("panic", rec), zap.Stack("stack"))
			}
		}()
		b.handleUpdate(ctx, update)
	}()
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.InlineQuery != nil:
		b.logger.Debug("inline query", zap.Int("updateID", update.UpdateID), zap.String("query", update.InlineQuery.Query))
		b.handleInlineQuery(ctx, update.InlineQuery)
	case update.CallbackQuery != nil:
		b.logger.Debug("callback query", zap.Int("updateID", update.UpdateID), zap.String("data", update.CallbackQuery.Data))
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.logger.Debug("message", zap.Int("updateID", update.UpdateID), zap.String("text", update.Message.Text))
		b.handleMessage(ctx, update.Message)
	default:
		b.logger.Debug("update ignored", zap.Int("updateID", update.UpdateID))
	}
}

func (b *Bot) chat(chatID int64) chat {
	return chat{api: b.sender, chatID: chatID, logger: b.logger}
}
