package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-rhythm-fusion/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, fixtures.WriteClickWAV(path, 22050, 0.5, []float64{0.1, 0.3}))

	rate, err := SampleRate(path)

	require.NoError(t, err)
	assert.Equal(t, 22050, rate)
}

func TestSampleRateInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file at all"), 0644))

	_, err := SampleRate(path)
	assert.Error(t, err)

	_, err = SampleRate(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestIsAudio(t *testing.T) {
	assert.True(t, IsAudio("a/b/Song.WAV"))
	assert.True(t, IsAudio("x.flac"))
	assert.False(t, IsAudio("x.rhythm.json"))
	assert.True(t, IsWAV("x.wave"))
	assert.False(t, IsWAV("x.mp3"))
}
