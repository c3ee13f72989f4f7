package estimator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// SidecarSuffix names the estimates file stored next to an audio file.
const SidecarSuffix = ".rhythm.json"

// SidecarPath returns "<dir>/<stem>.rhythm.json" for an audio path.
func SidecarPath(audioPath string) string {
	return filepath.Join(filepath.Dir(audioPath), util.Stem(audioPath)+SidecarSuffix)
}

// IsSidecar reports whether path names an estimates file.
func IsSidecar(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), SidecarSuffix)
}

// NewSidecarBackend reads precomputed estimates. When explicit is set it is
// used for every audio path, otherwise SidecarPath(audioPath) is read. An
// audio path that already names a sidecar is read directly.
func NewSidecarBackend(cfg BeatConfig, explicit string) Backend {
	return newMemoBackend("sidecar", cfg, func(ctx context.Context, audioPath string, _ BeatConfig) (*Estimates, error) {
		path := explicit
		switch {
		case path != "":
		case IsSidecar(audioPath):
			path = audioPath
		default:
			path = SidecarPath(audioPath)
		}

		util.LogDebugf("Reading estimates from %s", path)
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return DecodeEstimates(file)
	})
}
