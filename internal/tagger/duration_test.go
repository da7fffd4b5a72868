package tagger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mpeg1Layer3Frames builds n silent 128 kbit/s 44.1 kHz frames of 417 bytes.
func mpeg1Layer3Frames(n int) []byte {
	const frameSize = 417
	out := make([]byte, 0, n*frameSize)
	for i := 0; i < n; i++ {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
		out = append(out, frame...)
	}
	return out
}

func TestDurationSumsFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(path, mpeg1Layer3Frames(40), 0o600))

	got, err := New(nil).Duration(path)
	require.NoError(t, err)
	// 40 frames * 1152 samples / 44100 Hz
	assert.InDelta(t, float64(1045*time.Millisecond), float64(got), float64(5*time.Millisecond))
}

func TestDurationMissingFile(t *testing.T) {
	_, err := New(nil).Duration(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
