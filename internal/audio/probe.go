// Package audio reads container metadata; it never decodes samples.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// Extensions lists the audio containers the batch scanner picks up.
var Extensions = []string{".wav", ".wave", ".flac", ".mp3", ".ogg", ".m4a", ".aif", ".aiff"}

// IsAudio reports whether path has a known audio extension.
func IsAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// IsWAV reports whether path looks like a RIFF/WAVE file by extension.
func IsWAV(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}

// SampleRate reads the sample rate from a WAV header.
func SampleRate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid WAV file", path)
	}
	return int(d.SampleRate), nil
}
