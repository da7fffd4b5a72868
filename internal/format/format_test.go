package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ym-bot/internal/services/music"
)

func sample(id, title string, ms int, artists ...string) music.TrackMetadata {
	return music.TrackMetadata{
		ID:         id,
		Title:      title,
		Artists:    artists,
		DurationMs: ms,
		TrackLink:  "https://music.yandex.ru/track/" + id,
	}
}

func TestDuration(t *testing.T) {
	cases := map[int]string{
		0:       "0:00",
		59_999:  "0:59",
		60_000:  "1:00",
		180_000: "3:00",
		195_000: "3:15",
		3600000: "60:00",
		3661000: "61:01",
		-5:      "0:00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Duration(in), "ms=%d", in)
	}
}

func TestTrackMessageWithoutHandle(t *testing.T) {
	msg := TrackMessage(sample("123", "Test Track", 180000, "Test Artist"), "")

	assert.Contains(t, msg, "Test Track")
	assert.Contains(t, msg, "Test Artist")
	assert.Contains(t, msg, "3:00")
	assert.Contains(t, msg, listenLabel)
	assert.Contains(t, msg, "https://music.yandex.ru/track/123")
	assert.NotContains(t, msg, downloadLabel)
	assert.NotContains(t, msg, "start=download_")
}

func TestTrackMessageWithHandle(t *testing.T) {
	msg := TrackMessage(sample("123", "Test Track", 180000, "Test Artist"), "testbot")

	assert.Contains(t, msg, downloadLabel)
	assert.Equal(t, 1, strings.Count(msg, "https://t.me/testbot?start=download_123"))
}

func TestTrackMessageEscapesUntrustedText(t *testing.T) {
	msg := TrackMessage(sample("123", "Test & Track <script>", 1000, "Test & Artist", "<b>bold</b>"), "")

	assert.NotContains(t, msg, "<script>")
	assert.NotContains(t, msg, "<b>bold")
	assert.Contains(t, msg, "&lt;script&gt;")
	assert.Contains(t, msg, "Test &amp; Track")
	assert.Contains(t, msg, "Test &amp; Artist")
	assert.Contains(t, msg, "&lt;b&gt;bold&lt;/b&gt;")
}

func TestSearchResultsEmpty(t *testing.T) {
	assert.Equal(t, NothingFound, SearchResults(nil, "testbot"))
	assert.Equal(t, NothingFound, SearchResults([]music.TrackMetadata{}, ""))
}

func TestSearchResultsNumbered(t *testing.T) {
	tracks := []music.TrackMetadata{
		sample("123", "Test Track", 180000, "Test Artist"),
		sample("456", "Another Track", 240000, "Another Artist"),
		sample("789", "Third Track", 1000, "Third Artist"),
	}

	out := SearchResults(tracks, "testbot")

	first := strings.Index(out, "1. ")
	second := strings.Index(out, "2. ")
	third := strings.Index(out, "3. ")
	assert.True(t, first >= 0 && first < second && second < third, out)
	assert.True(t, strings.Index(out, "Test Track") < strings.Index(out, "Another Track"))
	assert.Contains(t, out, "4:00")
	assert.Contains(t, out, "start=download_456")

	assert.NotContains(t, SearchResults(tracks, ""), downloadLabel)
}

func TestTrackLine(t *testing.T) {
	assert.Equal(t, "Song - A, B", TrackLine(sample("1", "Song", 0, "A", "B")))
	assert.Equal(t, "Song", TrackLine(sample("1", "Song", 0)))
}

func TestHelpTextsEscapeHandle(t *testing.T) {
	assert.Contains(t, Help("aamuzbot"), "@aamuzbot")
	assert.Contains(t, MusicHelp("aamuzbot"), "/search")
	assert.Contains(t, Welcome("<Ann>", "aamuzbot"), "&lt;Ann&gt;")
}
