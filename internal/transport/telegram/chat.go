package telegram

import (
	"context"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ym-bot/internal/services/delivery"
)

// sender is the subset of *tgbotapi.BotAPI the handlers use.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chat implements delivery.Chat for one Telegram conversation.
type chat struct {
	api    sender
	chatID int64
	logger *zap.Logger
}

func (c chat) SendStatus(ctx context.Context, text string) (delivery.StatusMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sm, err := c.send(text)
	if err != nil {
		return nil, err
	}
	return sm, nil
}

func (c chat) send(text string) (*statusMessage, error) {
	msg, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text))
	if err != nil {
		return nil, fmt.Errorf("send status: %w", err)
	}
	return &statusMessage{api: c.api, chatID: c.chatID, messageID: msg.MessageID}, nil
}

func (c chat) SendAudio(ctx context.Context, audio delivery.Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(audio.Path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	cfg := tgbotapi.NewAudio(c.chatID, tgbotapi.FileReader{Name: audio.FileName, Reader: f})
	cfg.Title = audio.Title
	cfg.Performer = audio.Performer
	cfg.Duration = audio.Duration

	if _, err := c.api.Send(cfg); err != nil {
		return fmt.Errorf("send audio: %w", err)
	}
	return nil
}

func (c chat) reply(text string, html bool) {
	msg := tgbotapi.NewMessage(c.chatID, text)
	if html {
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
	}
	if _, err := c.api.Send(msg); err != nil && c.logger != nil {
		c.logger.Warn("reply failed", zap.Int64("chatID", c.chatID), zap.Error(err))
	}
}

// statusMessage implements delivery.StatusMessage on an editable bot message.
type statusMessage struct {
	api       sender
	chatID    int64
	messageID int
}

func (s *statusMessage) Edit(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.api.Send(tgbotapi.NewEditMessageText(s.chatID, s.messageID, text))
	return err
}

// editHTML replaces the text with HTML content and an optional keyboard.
func (s *statusMessage) editHTML(text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageText(s.chatID, s.messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true
	edit.ReplyMarkup = keyboard
	_, err := s.api.Send(edit)
	return err
}

func (s *statusMessage) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.api.Request(tgbotapi.NewDeleteMessage(s.chatID, s.messageID))
	return err
}
