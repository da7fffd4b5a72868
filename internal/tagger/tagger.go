package tagger

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"go.uber.org/zap"

	"ym-bot/internal/services/music"
)

// Tagger writes title and artist into ID3v2 tags.
type Tagger struct {
	logger *zap.Logger
}

// New constructs a Tagger.
func New(logger *zap.Logger) *Tagger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{logger: logger}
}

// Apply tags the file at path, creating a tag if the file has none.
// It is best-effort: any failure is logged and reported as false.
func (t *Tagger) Apply(path string, meta music.TrackMetadata) bool {
	if err := write(path, meta); err != nil {
		t.logger.Warn("tagging failed", zap.String("path", path), zap.String("trackID", meta.ID), zap.Error(err))
		return false
	}
	return true
}

func write(path string, meta music.TrackMetadata) (err error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tag: %w", err)
	}
	defer func() {
		if cerr := tag.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close tag: %w", cerr)
		}
	}()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.ArtistsString())

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tag: %w", err)
	}
	return nil
}
