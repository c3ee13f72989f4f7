package analyzer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-rhythm-fusion/internal/data/cache"
	"github.com/penwyp/go-rhythm-fusion/internal/presentation/formatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchFixture(t *testing.T) string {
	t.Helper()
	in := t.TempDir()

	writeEstimates(t, filepath.Join(in, "a.rhythm.json"), fixtureEstimates())

	// audio beside its sidecar; the WAV header is not readable so the
	// sample rate stays as reported
	est := fixtureEstimates()
	est.SampleRate = 0
	writeEstimates(t, filepath.Join(in, "album", "b.rhythm.json"), est)
	require.NoError(t, os.WriteFile(filepath.Join(in, "album", "b.wav"), []byte("not riff"), 0644))

	require.NoError(t, os.WriteFile(filepath.Join(in, "c.rhythm.json"), []byte(`{"beats":[`), 0644))
	return in
}

func TestRunBatch(t *testing.T) {
	in := batchFixture(t)
	cfg := testConfig(t)
	cfg.OutDir = t.TempDir()

	a, err := New(cfg)
	require.NoError(t, err)

	stats, err := a.RunBatch(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBatchFailed))

	total, hits, misses, failures, _ := stats.GetStats()
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, int64(1), failures)

	failed := stats.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, filepath.Join(in, "c.rhythm.json"), failed[0].FilePath)

	data, err := os.ReadFile(filepath.Join(cfg.OutDir, "a.timeline.json"))
	require.NoError(t, err)
	rec, err := formatter.DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, 44100, rec.SampleRate)
	assert.Len(t, rec.Beats, 5)

	data, err = os.ReadFile(filepath.Join(cfg.OutDir, "album", "b.timeline.json"))
	require.NoError(t, err)
	rec, err = formatter.DecodeRecord(data)
	require.NoError(t, err)
	assert.Zero(t, rec.SampleRate)

	assert.NoFileExists(t, filepath.Join(cfg.OutDir, "c.timeline.json"))
}

func TestRunBatchKeepsSubdirectoriesUnderOutDir(t *testing.T) {
	in := t.TempDir()
	first := fixtureEstimates()
	second := fixtureEstimates()
	second.SampleRate = 22050
	writeEstimates(t, filepath.Join(in, "disc1", "track.rhythm.json"), first)
	writeEstimates(t, filepath.Join(in, "disc2", "track.rhythm.json"), second)

	cfg := testConfig(t)
	cfg.OutDir = t.TempDir()
	a, err := New(cfg)
	require.NoError(t, err)

	stats, err := a.RunBatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "2 inputs: 2 processed, 0 cached, 0 failed", stats.String())

	rates := make(map[string]int)
	for _, disc := range []string{"disc1", "disc2"} {
		data, err := os.ReadFile(filepath.Join(cfg.OutDir, disc, "track.timeline.json"))
		require.NoError(t, err, disc)
		rec, err := formatter.DecodeRecord(data)
		require.NoError(t, err)
		rates[disc] = rec.SampleRate
	}
	assert.Equal(t, map[string]int{"disc1": 44100, "disc2": 22050}, rates)
	assert.NoFileExists(t, filepath.Join(cfg.OutDir, "track.timeline.json"))
}

func TestRunBatchReusesCache(t *testing.T) {
	in := t.TempDir()
	writeEstimates(t, filepath.Join(in, "a.rhythm.json"), fixtureEstimates())
	writeEstimates(t, filepath.Join(in, "b.rhythm.json"), fixtureEstimates())

	cfg := testConfig(t)
	cfg.UseCache = true

	a, err := New(cfg)
	require.NoError(t, err)
	first, err := a.RunBatch(context.Background(), in)
	require.NoError(t, err)
	_, hits, misses, _, _ := first.GetStats()
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(2), misses)
	assert.Equal(t, 2, first.MissReasons()[cache.MissReasonNotFound])

	// outputs default to the input directory
	assert.FileExists(t, filepath.Join(in, "a.timeline.json"))

	a2, err := New(cfg)
	require.NoError(t, err)
	second, err := a2.RunBatch(context.Background(), in)
	require.NoError(t, err)
	_, hits, misses, _, hitRate := second.GetStats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(0), misses)
	assert.Equal(t, 100.0, hitRate)

	require.NoError(t, a2.ResetCache())
	third, err := a2.RunBatch(context.Background(), in)
	require.NoError(t, err)
	_, hits, _, _, _ = third.GetStats()
	assert.Equal(t, int64(0), hits)
}

func TestRunBatchEmptyDirectory(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)

	_, err = a.RunBatch(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no audio or estimates files")
}

func TestRunBatchCancelled(t *testing.T) {
	in := batchFixture(t)
	a, err := New(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = a.RunBatch(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchStatsString(t *testing.T) {
	stats := NewBatchStats()
	for i := 0; i < 3; i++ {
		stats.IncrementTotal()
	}
	stats.IncrementHit()
	stats.IncrementMiss("b", cache.MissReasonSize)
	stats.IncrementFailure("c", errors.New("boom"))

	assert.Equal(t, "3 inputs: 1 processed, 1 cached, 1 failed", stats.String())
	assert.Equal(t, map[cache.CacheMissReason]int{cache.MissReasonSize: 1}, stats.MissReasons())
}
