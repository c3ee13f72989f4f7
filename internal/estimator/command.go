package estimator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// NewCommandBackend runs an external program once per audio file and parses
// an estimates document from its stdout. The audio path, fps and beats per
// bar are appended to args. A non-zero exit, a timeout or an invalid document
// fails the whole file; partial output is never used.
func NewCommandBackend(cfg BeatConfig, name string, args []string, timeout time.Duration) Backend {
	return newMemoBackend("command", cfg, func(ctx context.Context, audioPath string, cfg BeatConfig) (*Estimates, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		argv := append(append([]string{}, args...),
			audioPath,
			strconv.FormatFloat(cfg.FramesPerSecond, 'f', -1, 64),
			strconv.Itoa(cfg.BeatsPerBar),
		)
		cmd := exec.CommandContext(ctx, name, argv...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		cmd.WaitDelay = 2 * time.Second

		start := time.Now()
		util.LogDebugf("Running estimator: %s %s", name, strings.Join(argv, " "))
		if err := cmd.Run(); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("estimator command aborted after %v: %w", time.Since(start), ctx.Err())
			}
			return nil, fmt.Errorf("estimator command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		util.LogDebugf("Estimator finished for %s in %v", audioPath, time.Since(start))

		return ParseEstimates(stdout.Bytes())
	})
}

// SplitCommand splits a command line on whitespace into program and arguments.
func SplitCommand(line string) (string, []string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("estimator command is empty")
	}
	return fields[0], fields[1:], nil
}
