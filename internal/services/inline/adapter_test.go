package inline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ym-bot/internal/services/music"
)

type searchCall struct {
	query string
	limit int
	fetch bool
}

type fakeSearcher struct {
	tracks   []music.TrackMetadata
	calls    []searchCall
	block    bool
	canceled chan error
	panicMsg string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int, fetch bool) []music.TrackMetadata {
	f.calls = append(f.calls, searchCall{query: query, limit: limit, fetch: fetch})
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block {
		<-ctx.Done()
		f.canceled <- ctx.Err()
		return nil
	}
	return f.tracks
}

func tracks() []music.TrackMetadata {
	return []music.TrackMetadata{
		{ID: "123", Title: "Test Track", Artists: []string{"Test Artist"}, DurationMs: 180000, TrackLink: "https://music.yandex.ru/track/123"},
		{ID: "456", Title: "<Other>", Artists: []string{"B"}, DurationMs: 61000, TrackLink: "https://music.yandex.ru/track/456"},
	}
}

func TestHandleEmptyQuery(t *testing.T) {
	s := &fakeSearcher{}
	got := NewAdapter(s, time.Second, nil).Handle(context.Background(), "   ", "testbot")

	require.Len(t, got, 1)
	assert.Equal(t, EmptyID, got[0].ID)
	assert.True(t, got[0].Placeholder)
	assert.Contains(t, got[0].Title, "Поиск музыки")
	assert.Empty(t, s.calls)
}

func TestHandleResults(t *testing.T) {
	s := &fakeSearcher{tracks: tracks()}
	got := NewAdapter(s, time.Second, nil).Handle(context.Background(), "test query", "testbot")

	require.Equal(t, []searchCall{{query: "test query", limit: 10, fetch: false}}, s.calls)
	require.Len(t, got, 2)

	assert.Equal(t, ResultID("123"), got[0].ID)
	assert.Equal(t, "🎵 Test Track", got[0].Title)
	assert.Equal(t, "Test Artist • 3:00", got[0].Description)
	assert.True(t, got[0].HTML)
	assert.False(t, got[0].Placeholder)
	assert.Contains(t, got[0].MessageText, "https://t.me/testbot?start=download_123")
	assert.Contains(t, got[1].MessageText, "&lt;Other&gt;")
}

func TestHandleIsIdempotent(t *testing.T) {
	a := NewAdapter(&fakeSearcher{tracks: tracks()}, time.Second, nil)
	first := a.Handle(context.Background(), "q", "bot")
	second := a.Handle(context.Background(), "q", "bot")
	assert.Equal(t, first, second)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	assert.LessOrEqual(t, len(first[0].ID), 64)
}

func TestHandleNoResults(t *testing.T) {
	got := NewAdapter(&fakeSearcher{}, time.Second, nil).Handle(context.Background(), "nothing", "bot")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHandleTimeoutCancelsSearch(t *testing.T) {
	s := &fakeSearcher{block: true, canceled: make(chan error, 1)}
	got := NewAdapter(s, 20*time.Millisecond, nil).Handle(context.Background(), "slow", "bot")

	require.Len(t, got, 1)
	assert.Equal(t, TimeoutID, got[0].ID)
	assert.True(t, got[0].Placeholder)
	assert.Contains(t, got[0].Title, "слишком много времени")

	select {
	case err := <-s.canceled:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("search was not cancelled")
	}
}

func TestHandleUnexpectedError(t *testing.T) {
	got := NewAdapter(&fakeSearcher{panicMsg: "Test error"}, time.Second, nil).Handle(context.Background(), "q", "bot")

	require.Len(t, got, 1)
	assert.Equal(t, ErrorID, got[0].ID)
	assert.Contains(t, got[0].Title, "Произошла ошибка")
	assert.Contains(t, got[0].MessageText, "Test error")
}

func TestPlaceholderIDsDistinct(t *testing.T) {
	ids := map[string]bool{EmptyID: true, TimeoutID: true, ErrorID: true}
	assert.Len(t, ids, 3)
}
