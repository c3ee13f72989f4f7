package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bep/debounce"
	"github.com/penwyp/go-rhythm-fusion/internal/audio"
	"github.com/penwyp/go-rhythm-fusion/internal/data/scanner"
	"github.com/penwyp/go-rhythm-fusion/internal/data/watcher"
	"github.com/penwyp/go-rhythm-fusion/internal/estimator"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// WatchResult reports one re-export triggered by a changed estimates file.
type WatchResult struct {
	Input  string
	Output string
	Err    error
}

// Watch re-fuses inputs whenever an estimates file below dir is written.
// Bursts of writes are coalesced. It returns when ctx is cancelled.
func (a *Analyzer) Watch(ctx context.Context, dir string, report func(WatchResult)) error {
	fw, err := watcher.NewFileWatcher([]string{dir}, estimator.SidecarSuffix)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	defer fw.Close()

	util.LogInfof("Watching %s for %s changes", dir, estimator.SidecarSuffix)

	var mu sync.Mutex
	pending := make(map[string]struct{})
	trigger := make(chan struct{}, 1)
	debounced := debounce.New(a.config.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}
			util.LogDebugf("Estimates changed: %s (%s)", ev.Path, ev.Operation)
			mu.Lock()
			pending[ev.Path] = struct{}{}
			mu.Unlock()
			debounced(func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			mu.Lock()
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			pending = make(map[string]struct{})
			mu.Unlock()

			sort.Strings(paths)
			for _, sidecar := range paths {
				if ctx.Err() != nil {
					return nil
				}
				res := a.refuse(ctx, dir, sidecar)
				if res.Err != nil {
					util.LogWarnf("Failed to re-fuse %s: %v", res.Input, res.Err)
				} else {
					util.LogInfof("Re-exported %s", res.Output)
				}
				if report != nil {
					report(res)
				}
			}
		}
	}
}

func (a *Analyzer) refuse(ctx context.Context, root, sidecar string) WatchResult {
	input := AudioForSidecar(sidecar)
	res := WatchResult{Input: input, Output: a.OutputPath(root, input)}

	out, err := a.analyze(ctx, input)
	if err != nil {
		res.Err = err
		return res
	}
	res.Err = a.writeFile(res.Output, out.Document)
	return res
}

// AudioForSidecar returns the audio file an estimates file belongs to, or
// the estimates file itself when no audio sits beside it.
func AudioForSidecar(sidecar string) string {
	dir := filepath.Dir(sidecar)
	stem := scanner.InputStem(sidecar)
	for _, ext := range audio.Extensions {
		candidate := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return sidecar
}
