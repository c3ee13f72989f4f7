package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/audio"
	"github.com/penwyp/go-rhythm-fusion/internal/estimator"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// FileScanner finds analysis inputs below a directory
type FileScanner struct {
	baseDir string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir}
}

// Scan returns every audio file, plus every estimates sidecar that has no
// audio file beside it, sorted by path. Unreadable entries are skipped.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()
	var audioFiles, sidecars []string
	dirCount := 0
	totalCount := 0

	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err := filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebugf("Skip file (error): %s - %v", path, err)
			return nil
		}
		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		switch {
		case estimator.IsSidecar(path):
			sidecars = append(sidecars, path)
		case audio.IsAudio(path):
			audioFiles = append(audioFiles, path)
		}
		return nil
	})

	covered := make(map[string]bool, len(audioFiles))
	for _, f := range audioFiles {
		covered[estimator.SidecarPath(f)] = true
	}

	files := audioFiles
	for _, sc := range sidecars {
		if !covered[sc] {
			files = append(files, sc)
		}
	}
	sort.Strings(files)

	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d inputs",
		time.Since(start), dirCount, totalCount, len(files))

	return files, err
}

// SidecarOnly reports whether an input path is an estimates file rather than audio.
func SidecarOnly(path string) bool {
	return estimator.IsSidecar(path)
}

// InputStem strips the audio or sidecar suffix from an input path's base name.
func InputStem(path string) string {
	base := filepath.Base(path)
	if estimator.IsSidecar(base) {
		return base[:len(base)-len(estimator.SidecarSuffix)]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
