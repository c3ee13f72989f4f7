package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReexportsChangedEstimates(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Debounce = 50 * time.Millisecond
	a, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan WatchResult, 16)
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, dir, func(r WatchResult) { results <- r })
	}()

	sidecar := filepath.Join(dir, "song.rhythm.json")
	deadline := time.After(10 * time.Second)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var res WatchResult
wait:
	for {
		select {
		case res = <-results:
			break wait
		case <-ticker.C:
			// keep writing until the watcher has registered the directory
			writeEstimates(t, sidecar, fixtureEstimates())
		case <-deadline:
			t.Fatal("no re-export reported")
		}
	}

	require.NoError(t, res.Err)
	assert.Equal(t, sidecar, res.Input)
	assert.Equal(t, filepath.Join(dir, "song.timeline.json"), res.Output)
	assert.FileExists(t, res.Output)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestAudioForSidecar(t *testing.T) {
	dir := t.TempDir()
	sidecar := filepath.Join(dir, "track.rhythm.json")
	assert.Equal(t, sidecar, AudioForSidecar(sidecar))

	audioPath := filepath.Join(dir, "track.flac")
	require.NoError(t, os.WriteFile(audioPath, []byte("x"), 0644))
	assert.Equal(t, audioPath, AudioForSidecar(sidecar))
}
