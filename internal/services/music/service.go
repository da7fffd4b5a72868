package music

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ym-bot/internal/client/yandex"
)

// linkWorkers bounds concurrent download-link resolutions within one search.
const linkWorkers = 4

// TrackMetadata is built fresh per request and never cached.
type TrackMetadata struct {
	ID         string
	Title      string
	Artists    []string
	DurationMs int
	TrackLink  string
	// DownloadLink is set only by an explicit resolution step and is
	// short-lived; it must not outlive the operation that obtained it.
	DownloadLink string
}

// ArtistsString renders joined artist names, primary artist first.
func (t TrackMetadata) ArtistsString() string {
	return strings.Join(t.Artists, ", ")
}

// DurationSeconds is the whole-second duration used for uploads.
func (t TrackMetadata) DurationSeconds() int {
	return t.DurationMs / 1000
}

// Service resolves tracks and their download links.
// Every method degrades to an empty result instead of returning errors.
type Service struct {
	client yandex.Client
	logger *zap.Logger
}

// NewService constructs a music service instance.
func NewService(client yandex.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// Search returns at most limit tracks in the service's ranking order.
// With fetchDownloadInfo each track gets a DownloadLink; a track whose link
// cannot be resolved is kept without one.
func (s *Service) Search(ctx context.Context, query string, limit int, fetchDownloadInfo bool) []TrackMetadata {
	if limit <= 0 {
		return nil
	}

	found, err := s.client.SearchTracks(ctx, query, limit, 0)
	if err != nil {
		s.logger.Warn("search failed", zap.String("query", query), zap.Error(err))
		return nil
	}
	if len(found) > limit {
		found = found[:limit]
	}

	tracks := make([]TrackMetadata, len(found))
	for i, t := range found {
		tracks[i] = fromClient(t)
	}

	if !fetchDownloadInfo || len(tracks) == 0 {
		return tracks
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkWorkers)
	for i := range tracks {
		i := i
		g.Go(func() error {
			if link, ok := s.downloadLink(gctx, tracks[i].ID); ok {
				tracks[i].DownloadLink = link
			}
			return nil
		})
	}
	_ = g.Wait()

	return tracks
}

// ResolveDownloadLink returns a direct link for the highest-bitrate encoding
// of the track, or false if the track or its encodings are unavailable.
func (s *Service) ResolveDownloadLink(ctx context.Context, trackID string) (string, bool) {
	if _, err := s.client.GetTrack(ctx, trackID); err != nil {
		s.logger.Warn("track lookup failed", zap.String("trackID", trackID), zap.Error(err))
		return "", false
	}
	return s.downloadLink(ctx, trackID)
}

// FullInfo combines metadata lookup with link resolution.
// The result always carries a DownloadLink when ok is true.
func (s *Service) FullInfo(ctx context.Context, trackID string) (TrackMetadata, bool) {
	track, err := s.client.GetTrack(ctx, trackID)
	if err != nil {
		s.logger.Warn("track lookup failed", zap.String("trackID", trackID), zap.Error(err))
		return TrackMetadata{}, false
	}

	link, ok := s.downloadLink(ctx, trackID)
	if !ok {
		return TrackMetadata{}, false
	}

	meta := fromClient(track)
	meta.DownloadLink = link
	return meta, true
}

func (s *Service) downloadLink(ctx context.Context, trackID string) (string, bool) {
	infos, err := s.client.GetDownloadInfo(ctx, trackID)
	if err != nil {
		s.logger.Warn("download info failed", zap.String("trackID", trackID), zap.Error(err))
		return "", false
	}

	best, ok := PickBest(infos)
	if !ok {
		s.logger.Warn("no encodings offered", zap.String("trackID", trackID))
		return "", false
	}

	link, err := s.client.DirectLink(ctx, best)
	if err != nil || link == "" {
		s.logger.Warn("direct link failed", zap.String("trackID", trackID), zap.Int("bitrate", best.Bitrate), zap.Error(err))
		return "", false
	}

	s.logger.Debug("download link resolved", zap.String("trackID", trackID), zap.String("codec", best.Codec), zap.Int("bitrate", best.Bitrate))
	return link, true
}

// PickBest selects the encoding with the highest bitrate. Among encodings
// sharing the maximum, the first one offered wins.
func PickBest(infos []yandex.DownloadInfo) (yandex.DownloadInfo, bool) {
	if len(infos) == 0 {
		return yandex.DownloadInfo{}, false
	}
	best := infos[0]
	for _, info := range infos[1:] {
		if info.Bitrate > best.Bitrate {
			best = info
		}
	}
	return best, true
}

func fromClient(t yandex.Track) TrackMetadata {
	return TrackMetadata{
		ID:         t.ID,
		Title:      t.Title,
		Artists:    t.Artists,
		DurationMs: t.DurationMs,
		TrackLink:  yandex.TrackURL(t.ID),
	}
}
