// Package inline shapes music search results for Telegram inline mode.
package inline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ym-bot/internal/format"
	"ym-bot/internal/services/music"
)

// Placeholder ids.
const (
	EmptyID   = "empty"
	TimeoutID = "timeout"
	ErrorID   = "error"
)

const (
	// SearchLimit is the number of tracks requested per inline query.
	SearchLimit = 10
	// DefaultTimeout bounds a single inline search.
	DefaultTimeout = 10 * time.Second
)

// resultNamespace seeds deterministic result ids.
var resultNamespace = uuid.MustParse("6f1c3c9e-3b0a-4c1e-9a8d-2f4b5d7e8a90")

// Searcher finds tracks; it reports failures as an empty result.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, fetchDownloadInfo bool) []music.TrackMetadata
}

// Result is one presentable inline item.
type Result struct {
	ID          string
	Title       string
	Description string
	MessageText string
	// HTML marks MessageText as Telegram HTML.
	HTML bool
	// Placeholder is set for the hint, timeout and error items.
	Placeholder bool
}

// Adapter turns inline queries into result lists.
type Adapter struct {
	searcher Searcher
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAdapter builds an Adapter; a non-positive timeout means DefaultTimeout.
func NewAdapter(searcher Searcher, timeout time.Duration, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{searcher: searcher, timeout: timeout, logger: logger}
}

// ResultID derives a stable inline result id from a track id.
func ResultID(trackID string) string {
	return uuid.NewMD5(resultNamespace, []byte(trackID)).String()
}

type outcome struct {
	tracks []music.TrackMetadata
	err    error
}

// Handle answers an inline query. Zero matches give an empty slice.
func (a *Adapter) Handle(ctx context.Context, query, botHandle string) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{emptyResult()}
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				a.logger.Error("inline search panicked", zap.String("query", query), zap.Any("panic", rec), zap.Stack("stack"))
				done <- outcome{err: fmt.Errorf("%v", rec)}
			}
		}()
		done <- outcome{tracks: a.searcher.Search(ctx, query, SearchLimit, false)}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		a.logger.Warn("inline search timed out", zap.String("query", query), zap.Duration("timeout", a.timeout))
		return []Result{timeoutResult()}
	}

	if out.err != nil {
		return []Result{errorResult(out.err)}
	}

	results := make([]Result, 0, len(out.tracks))
	for _, track := range out.tracks {
		results = append(results, Result{
			ID:          ResultID(track.ID),
			Title:       "🎵 " + track.Title,
			Description: fmt.Sprintf("%s • %s", track.ArtistsString(), format.Duration(track.DurationMs)),
			MessageText: format.TrackMessage(track, botHandle),
			HTML:        true,
		})
	}

	a.logger.Debug("inline search answered", zap.String("query", query), zap.Int("results", len(results)))
	return results
}

func emptyResult() Result {
	return Result{
		ID:          EmptyID,
		Title:       "Поиск музыки",
		Description: "Введите название трека или исполнителя",
		MessageText: "Для поиска музыки введите название трека или исполнителя",
		Placeholder: true,
	}
}

func timeoutResult() Result {
	return Result{
		ID:          TimeoutID,
		Title:       "Поиск занял слишком много времени",
		Description: "Пожалуйста, попробуйте еще раз",
		MessageText: "⚠️ Поиск занял слишком много времени. Пожалуйста, попробуйте еще раз.",
		Placeholder: true,
	}
}

func errorResult(err error) Result {
	return Result{
		ID:          ErrorID,
		Title:       "Произошла ошибка",
		Description: "Пожалуйста, попробуйте еще раз",
		MessageText: "❌ Произошла ошибка при поиске: " + err.Error(),
		Placeholder: true,
	}
}
