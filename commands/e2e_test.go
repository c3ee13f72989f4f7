//go:build e2e
// +build e2e

package commands

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/testing/e2e"
	"github.com/penwyp/go-rhythm-fusion/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "go-rhythm-fusion")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "../cmd")
	output, err := buildCmd.CombinedOutput()
	require.NoError(t, err, "Failed to build binary: %s", string(output))
	return binaryPath
}

func TestE2EMissingAudioExitsWithUsage(t *testing.T) {
	binaryPath := buildBinary(t)

	cmd := exec.Command(binaryPath)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())
	output, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Contains(t, string(output), "Usage:")
}

func TestE2ETableIsColouredOnTerminal(t *testing.T) {
	binaryPath := buildBinary(t)
	dir := t.TempDir()
	input := clickTrack(t, dir, "song")

	s, err := e2e.Start(&e2e.SessionConfig{
		Command: binaryPath,
		Args:    []string{input, "--format", "table"},
		Env:     []string{"HOME=" + t.TempDir()},
	})
	require.NoError(t, err)
	require.NoError(t, s.Wait())

	assert.True(t, e2e.HasANSI(s.Output()), "salient rows are highlighted on a terminal")
	clean := s.CleanOutput()
	assert.Contains(t, clean, "Kind")
	assert.Contains(t, clean, "onset")
}

func TestE2EBatchShowsProgress(t *testing.T) {
	binaryPath := buildBinary(t)
	in := t.TempDir()
	for _, name := range []string{"a", "b", "c"} {
		tr := fixtures.DefaultTrack(name)
		tr.Audio = true
		_, err := fixtures.NewGenerator(in).Write(tr)
		require.NoError(t, err)
	}

	s, err := e2e.Start(&e2e.SessionConfig{
		Command: binaryPath,
		Args:    []string{"batch", in},
		Env:     []string{"HOME=" + t.TempDir()},
	})
	require.NoError(t, err)
	require.NoError(t, s.Wait())

	clean := s.CleanOutput()
	assert.Contains(t, clean, "Fusing:")
	assert.Contains(t, clean, "3 inputs: 3 processed, 0 cached, 0 failed")
	assert.FileExists(t, filepath.Join(in, "b.timeline.json"))
}

func TestE2EWatchReexportsAndStopsOnInterrupt(t *testing.T) {
	binaryPath := buildBinary(t)
	dir := t.TempDir()

	s, err := e2e.Start(&e2e.SessionConfig{
		Command: binaryPath,
		Args:    []string{"watch", dir, "--debounce", "100ms"},
		Env:     []string{"HOME=" + t.TempDir()},
	})
	require.NoError(t, err)

	// the watcher registers the directory shortly after start
	time.Sleep(500 * time.Millisecond)
	clickTrack(t, dir, "live")

	require.NoError(t, s.WaitForText("updated", 10*time.Second))
	assert.FileExists(t, filepath.Join(dir, "live.timeline.json"))

	require.NoError(t, s.Signal(os.Interrupt))
	assert.NoError(t, s.Wait())
}
