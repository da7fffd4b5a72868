package tagger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ym-bot/internal/services/music"
)

func TestApplyCreatesTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	audio := bytes.Repeat([]byte{0xFF, 0xFB, 0x90, 0x64}, 256)
	require.NoError(t, os.WriteFile(path, audio, 0o644))

	ok := New(nil).Apply(path, music.TrackMetadata{
		ID:      "123",
		Title:   "Imagine",
		Artists: []string{"John Lennon", "Plastic Ono Band"},
	})
	require.True(t, ok)

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Imagine", tag.Title())
	assert.Equal(t, "John Lennon, Plastic Ono Band", tag.Artist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasSuffix(data, audio), "audio payload must survive tagging")
}

func TestApplyOverwritesExistingTag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o644))

	tg := New(nil)
	require.True(t, tg.Apply(path, music.TrackMetadata{Title: "Old", Artists: []string{"Someone"}}))
	require.True(t, tg.Apply(path, music.TrackMetadata{Title: "Новая", Artists: []string{"Кто-то"}}))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Новая", tag.Title())
	assert.Equal(t, "Кто-то", tag.Artist())
}

func TestApplyMissingFileIsFalse(t *testing.T) {
	ok := New(nil).Apply(filepath.Join(t.TempDir(), "missing.mp3"), music.TrackMetadata{Title: "x"})
	assert.False(t, ok)
}
