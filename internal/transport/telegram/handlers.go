package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ym-bot/internal/format"
	"ym-bot/internal/services/delivery"
	"ym-bot/internal/services/inline"
	"ym-bot/internal/services/music"
)

const (
	callbackPrefix = "download:"
	startPrefix    = "download_"

	placeholderCacheTime = 1
	resultsCacheTime     = 300
)

const (
	textStarting   = "⏳ Начинаем скачивание..."
	textSearching  = "🔍 Ищу трек..."
	textNoQuery    = "Введите название трека или исполнителя для поиска"
	textBusy       = "⏳ Сейчас слишком много загрузок, попробуйте чуть позже"
	textUnknownCmd = "Неизвестная команда. Список команд: /help"
	textPreparing  = "Готовим ваш трек…"
)

var (
	downloadCommand = regexp.MustCompile(`^download_(\d+)$`)
	trackIDPattern  = regexp.MustCompile(`^\d+(:\d+)?$`)
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat == nil {
		return
	}
	c := b.chat(msg.Chat.ID)

	if msg.IsCommand() {
		cmd := msg.Command()
		switch {
		case cmd == "start":
			b.handleStart(ctx, msg)
		case cmd == "help":
			c.reply(format.Help(b.username), true)
		case cmd == "music":
			c.reply(format.MusicHelp(b.username), true)
		case cmd == "search":
			b.handleSearch(ctx, c, msg.CommandArguments())
		case downloadCommand.MatchString(cmd):
			b.startDownload(ctx, c, downloadCommand.FindStringSubmatch(cmd)[1], nil)
		default:
			c.reply(textUnknownCmd, false)
		}
		return
	}

	// Messages produced through inline mode carry our own output.
	if msg.ViaBot != nil {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.handleSearch(ctx, c, msg.Text)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	c := b.chat(msg.Chat.ID)

	args := strings.TrimSpace(msg.CommandArguments())
	if !strings.HasPrefix(args, startPrefix) {
		c.reply(format.Welcome(fullName(msg.From), b.username), true)
		return
	}

	trackID := strings.TrimPrefix(args, startPrefix)
	if !trackIDPattern.MatchString(trackID) {
		c.reply(textUnknownCmd, false)
		return
	}

	var status delivery.StatusMessage
	if sm, err := c.send(textStarting); err != nil {
		b.logger.Warn("send start status failed", zap.String("trackID", trackID), zap.Error(err))
	} else {
		status = sm
	}
	if _, err := b.sender.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		b.logger.Debug("delete start command failed", zap.Error(err))
	}

	b.startDownload(ctx, c, trackID, status)
}

func (b *Bot) startDownload(ctx context.Context, c chat, trackID string, status delivery.StatusMessage) {
	if b.downloader.Launch(ctx, c, trackID, status) {
		return
	}
	if status != nil {
		if err := status.Edit(ctx, textBusy); err == nil {
			return
		}
	}
	c.reply(textBusy, false)
}

func (b *Bot) handleSearch(ctx context.Context, c chat, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		c.reply(textNoQuery, false)
		return
	}

	sm, err := c.send(textSearching)
	if err != nil {
		b.logger.Warn("send search status failed", zap.Error(err))
		return
	}

	tracks := b.searcher.Search(ctx, query, b.searchLimit, false)
	if len(tracks) == 0 {
		if err := sm.Edit(ctx, format.NothingFound); err != nil {
			b.logger.Warn("edit search status failed", zap.Error(err))
		}
		return
	}

	if err := sm.editHTML(format.SearchResults(tracks, b.username), downloadKeyboard(tracks)); err != nil {
		b.logger.Warn("render search results failed", zap.String("query", query), zap.Error(err))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data == "" || !strings.HasPrefix(cb.Data, callbackPrefix) {
		return
	}

	trackID := strings.TrimPrefix(cb.Data, callbackPrefix)
	if !trackIDPattern.MatchString(trackID) {
		return
	}

	var chatID int64
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	} else if cb.From != nil {
		// Inline keyboard callbacks may omit message; fall back to sender.
		chatID = cb.From.ID
	} else {
		return
	}

	if !b.downloader.Launch(ctx, b.chat(chatID), trackID, nil) {
		b.sendAlert(cb, textBusy)
		return
	}

	// A callback is answered once: either the alert above or this ack.
	ack := tgbotapi.NewCallback(cb.ID, textPreparing)
	if _, err := b.sender.Request(ack); err != nil {
		b.logger.Warn("callback ack failed", zap.Error(err))
	}
}

func (b *Bot) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	results := b.inline.Handle(ctx, q.Query, b.username)

	articles := make([]interface{}, 0, len(results))
	cacheTime := resultsCacheTime
	for _, r := range results {
		if r.Placeholder {
			cacheTime = placeholderCacheTime
		}
		articles = append(articles, article(r))
	}

	ans := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		CacheTime:     cacheTime,
		Results:       articles,
	}

	if _, err := b.sender.Request(ans); err != nil {
		b.logger.Warn("answer inline failed", zap.String("query", q.Query), zap.Error(err))
	}
}

func (b *Bot) sendAlert(cb *tgbotapi.CallbackQuery, text string) {
	alert := tgbotapi.NewCallbackWithAlert(cb.ID, text)
	if _, err := b.sender.Request(alert); err != nil {
		b.logger.Warn("callback alert failed", zap.Error(err))
	}
}

func article(r inline.Result) tgbotapi.InlineQueryResultArticle {
	content := tgbotapi.InputTextMessageContent{
		Text:                  r.MessageText,
		DisableWebPagePreview: true,
	}
	if r.HTML {
		content.ParseMode = tgbotapi.ModeHTML
	}

	a := tgbotapi.NewInlineQueryResultArticle(r.ID, r.Title, r.MessageText)
	a.Description = r.Description
	a.InputMessageContent = content
	return a
}

func downloadKeyboard(tracks []music.TrackMetadata) *tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tracks))
	for i, t := range tracks {
		label := fmt.Sprintf("⬇️ %d. %s", i+1, truncate(format.TrackLine(t), 48))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackPrefix+t.ID),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func fullName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
