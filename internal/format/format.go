// Package format renders track metadata as Telegram HTML messages.
package format

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ym-bot/internal/services/music"
)

// NothingFound is the reply for an empty result set.
const NothingFound = "❌ Ничего не найдено"

const (
	listenLabel   = "Слушать на Яндекс.Музыке"
	downloadLabel = "Скачать MP3"
)

// Duration renders milliseconds as M:SS; minutes never wrap into hours.
func Duration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// DownloadDeepLink is the t.me link that starts a download in a private chat.
func DownloadDeepLink(botHandle, trackID string) string {
	return fmt.Sprintf("https://t.me/%s?start=download_%s", botHandle, trackID)
}

// TrackMessage renders one track. The download link is included only when
// botHandle is not empty.
func TrackMessage(track music.TrackMetadata, botHandle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎵 <b>%s</b>\n", escape(track.Title))
	fmt.Fprintf(&b, "👤 %s\n", escape(track.ArtistsString()))
	fmt.Fprintf(&b, "⏱ %s\n", Duration(track.DurationMs))
	fmt.Fprintf(&b, `<a href="%s">%s</a>`, escape(track.TrackLink), listenLabel)
	if botHandle != "" {
		fmt.Fprintf(&b, ` | <a href="%s">%s</a>`, DownloadDeepLink(botHandle, track.ID), downloadLabel)
	}
	return b.String()
}

// SearchResults renders a numbered list of tracks, or NothingFound.
func SearchResults(tracks []music.TrackMetadata, botHandle string) string {
	if len(tracks) == 0 {
		return NothingFound
	}

	var b strings.Builder
	b.WriteString("🔍 Результаты поиска:\n\n")
	for i, track := range tracks {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, TrackMessage(track, botHandle))
	}
	return strings.TrimRight(b.String(), "\n")
}

// TrackLine is the plain-text "title - artists" line used in status messages.
func TrackLine(track music.TrackMetadata) string {
	if len(track.Artists) == 0 {
		return track.Title
	}
	return track.Title + " - " + track.ArtistsString()
}

// Help lists the bot commands.
func Help(botHandle string) string {
	return "<b>📖 Доступные команды</b>\n\n" +
		"• /start - начало работы с ботом\n" +
		"• /help - эта справка\n" +
		"• /music - музыкальные команды\n" +
		"• /search название - поиск треков\n\n" +
		"Для поиска музыки просто отправьте название трека или исполнителя.\n" +
		"Также вы можете использовать инлайн режим в других чатах: @" + escape(botHandle) + " название"
}

// MusicHelp describes the music commands.
func MusicHelp(botHandle string) string {
	return "<b>🎵 Музыкальные команды</b>\n\n" +
		"• Отправьте название трека или исполнителя для поиска\n" +
		"• Используйте инлайн режим для поиска в других чатах: @" + escape(botHandle) + " название\n" +
		"• /search название - поиск треков\n" +
		"• /download_ID - скачать трек по ID\n" +
		"• /music - эта справка"
}

// Welcome greets a user on /start.
func Welcome(fullName, botHandle string) string {
	return fmt.Sprintf("Привет, %s 👋\n\n", escape(fullName)) +
		"Я помогу тебе найти музыку из Яндекс.Музыки. Вот что я умею:\n\n" +
		"🔍 Поиск треков:\n" +
		"Просто напиши мне название трека или исполнителя, и я найду его для тебя.\n\n" +
		"📱 Inline-режим:\n" +
		"Ты можешь искать музыку прямо в любом чате! Просто набери @" + escape(botHandle) + " и текст для поиска.\n\n" +
		"❓ Помощь:\n" +
		"Используй команду /help, чтобы увидеть список всех команд."
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}
