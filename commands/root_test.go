package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/penwyp/go-rhythm-fusion/internal/core/model"
	"github.com/penwyp/go-rhythm-fusion/internal/presentation/formatter"
	"github.com/penwyp/go-rhythm-fusion/internal/testing/fixtures"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCommand restores flag defaults between in-process runs.
func resetCommand(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SilenceUsage = false
	for _, c := range cmd.Commands() {
		resetCommand(c)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	resetCommand(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// clickTrack writes two bars at 120 BPM with a loud off-beat onset at 0.8s.
func clickTrack(t *testing.T, dir, name string) string {
	t.Helper()
	tr := fixtures.DefaultTrack(name)
	tr.Onsets = []fixtures.Onset{{Time: 0.8, Strength: 1.0}}
	input, err := fixtures.NewGenerator(dir).Write(tr)
	require.NoError(t, err)
	return input
}

func TestRootCommandMissingAudio(t *testing.T) {
	stdout, stderr, err := execute(t)

	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingAudio)
	assert.Contains(t, stdout+stderr, "Usage:")
	assert.Contains(t, stderr, "missing audio file path")
}

func TestRootCommandTooManyArgs(t *testing.T) {
	_, _, err := execute(t, "a.wav", "b.json", "extra")
	assert.Error(t, err)
}

func TestRootCommandPrintsBeatGrid(t *testing.T) {
	input := clickTrack(t, t.TempDir(), "song")

	stdout, _, err := execute(t, input)
	require.NoError(t, err)

	rec, err := formatter.DecodeRecord([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, 44100, rec.SampleRate)
	require.Len(t, rec.Beats, 8)

	measures := make([]int, len(rec.Beats))
	positions := make([]int, len(rec.Beats))
	for i, b := range rec.Beats {
		measures[i] = b.Measure
		positions[i] = b.BeatInMeasure
	}
	assert.Equal(t, []int{1, 1, 1, 1, 2, 2, 2, 2}, measures)
	assert.Equal(t, []int{1, 2, 3, 4, 1, 2, 3, 4}, positions)
	assert.Equal(t, 0.5, rec.Beats[0].Time)
	assert.Nil(t, rec.Beats[0].Strength)
}

func TestRootCommandWritesRichRecord(t *testing.T) {
	dir := t.TempDir()
	input := clickTrack(t, dir, "song")
	output := filepath.Join(dir, "out", "song.json")

	stdout, _, err := execute(t, input, output, "--format", "rich")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	rec, err := formatter.DecodeRecord(data)
	require.NoError(t, err)
	require.Len(t, rec.Beats, 9)
	assert.Equal(t, 100.0, rec.FrameRate)
	assert.Equal(t, 120.0, rec.Tempo)

	onset := rec.Beats[1]
	assert.Equal(t, model.KindOnset.String(), onset.Kind)
	assert.Equal(t, 0.8, onset.Time)
	assert.Equal(t, 1, onset.Measure)
	require.NotNil(t, onset.Salient)
	assert.True(t, *onset.Salient)

	salient := 0
	for _, b := range rec.Beats {
		if b.Salient != nil && *b.Salient {
			salient++
		}
	}
	assert.Equal(t, 2, salient)
}

func TestRootCommandBudgetZero(t *testing.T) {
	input := clickTrack(t, t.TempDir(), "song")

	stdout, _, err := execute(t, input, "--format", "rich", "--budget", "0")
	require.NoError(t, err)

	rec, err := formatter.DecodeRecord([]byte(stdout))
	require.NoError(t, err)
	for _, b := range rec.Beats {
		require.NotNil(t, b.Salient)
		assert.False(t, *b.Salient)
	}
}

func TestRootCommandTableAndSummary(t *testing.T) {
	input := clickTrack(t, t.TempDir(), "song")

	stdout, _, err := execute(t, input, "--format", "table")
	require.NoError(t, err)
	assert.Contains(t, stdout, "000.5")
	assert.Contains(t, stdout, "001")
	assert.Contains(t, stdout, "onset")
	assert.NotContains(t, stdout, "\033[")

	stdout, _, err = execute(t, input, "--format", "summary")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Downbeats: 2")
	assert.Contains(t, stdout, "Beats (incl. downbeats): 8")
	assert.Contains(t, stdout, "Tempo: 120.00 BPM")
}

func TestRootCommandInvalidParameters(t *testing.T) {
	input := clickTrack(t, t.TempDir(), "song")

	tests := []struct {
		name string
		args []string
	}{
		{"zero_tolerance", []string{"--tolerance", "0"}},
		{"percentile_out_of_range", []string{"--threshold-mode", "percentile", "--percentile", "120"}},
		{"negative_budget", []string{"--budget", "-5"}},
		{"unknown_format", []string{"--format", "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, append([]string{input}, tt.args...)...)
			assert.ErrorIs(t, err, model.ErrInvalidParameter)
		})
	}
}

func TestRootCommandMissingEstimates(t *testing.T) {
	_, _, err := execute(t, filepath.Join(t.TempDir(), "nothing.wav"))
	assert.ErrorIs(t, err, model.ErrEstimator)
}

func TestRootCommandPreset(t *testing.T) {
	dir := t.TempDir()
	input := clickTrack(t, dir, "song")
	preset := filepath.Join(dir, "preset.yaml")
	require.NoError(t, os.WriteFile(preset, []byte("format: summary\nbudget: 0\n"), 0644))

	stdout, _, err := execute(t, input, "--config", preset)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Salient events: 0 (budget 0)")

	// an explicit flag wins over the preset
	stdout, _, err = execute(t, input, "--config", preset, "--budget", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Salient events: 1 (budget 1)")
}

func TestRootCommandExplicitEstimates(t *testing.T) {
	dir := t.TempDir()
	estimates := clickTrack(t, dir, "song")
	audioPath := filepath.Join(dir, "elsewhere.wav")
	require.NoError(t, fixtures.WriteClickWAV(audioPath, 22050, 5, nil))

	stdout, _, err := execute(t, audioPath, "--estimates", estimates, "--no-cache")
	require.NoError(t, err)
	rec, err := formatter.DecodeRecord([]byte(stdout))
	require.NoError(t, err)
	assert.Equal(t, 44100, rec.SampleRate)
	assert.Len(t, rec.Beats, 8)
}
