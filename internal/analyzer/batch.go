package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-rhythm-fusion/internal/data/scanner"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ErrBatchFailed is returned when at least one input of a batch failed.
var ErrBatchFailed = errors.New("batch had failures")

// RunBatch fuses every input found below dir. Each input is processed by
// its own worker with its own timeline; a failure aborts only that input.
func (a *Analyzer) RunBatch(ctx context.Context, dir string) (*BatchStats, error) {
	startTime := time.Now()
	stats := NewBatchStats()

	// Phase 1: preload the cache into memory
	if a.cache != nil {
		preloadStart := time.Now()
		if err := a.cache.Preload(); err != nil {
			util.LogWarnf("Cache preload failed: %v", err)
		}
		util.LogDebugf("Phase 1 - Cache preload duration: %v", time.Since(preloadStart))
	}

	// Phase 2: scan for inputs
	scanStart := time.Now()
	files, err := scanner.NewFileScanner(dir).Scan()
	if err != nil {
		return stats, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	util.LogDebugf("Phase 2 - File scan duration: %v, found %d inputs", time.Since(scanStart), len(files))
	if len(files) == 0 {
		return stats, fmt.Errorf("no audio or estimates files found in %s", dir)
	}
	if a.config.OutDir != "" {
		if err := util.EnsureDir(a.config.OutDir); err != nil {
			return stats, err
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	// Phase 3: fan out
	progress := mpb.NewWithContext(ctx, mpb.WithOutput(a.config.Progress), mpb.WithWidth(64))
	bar := progress.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Fusing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < a.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				jobStart := time.Now()
				a.processBatchInput(ctx, dir, file, stats)
				bar.EwmaIncrement(time.Since(jobStart))
			}
		}()
	}

feed:
	for _, f := range files {
		select {
		case jobs <- f:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	if ctx.Err() != nil {
		bar.Abort(false)
	}
	progress.Wait()

	util.LogDebugf("Phase 3 - Fusion duration: %v", time.Since(startTime))
	stats.PrintFinalStats()

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if _, _, _, failures, _ := stats.GetStats(); failures > 0 {
		return stats, fmt.Errorf("%w: %d of %d inputs failed", ErrBatchFailed, failures, len(files))
	}
	return stats, nil
}

func (a *Analyzer) processBatchInput(ctx context.Context, root, file string, stats *BatchStats) {
	stats.IncrementTotal()

	out, err := a.analyze(ctx, file)
	if err != nil {
		stats.IncrementFailure(file, err)
		util.LogWarnf("Failed to fuse %s: %v", file, err)
		return
	}
	if err := a.writeFile(a.OutputPath(root, file), out.Document); err != nil {
		stats.IncrementFailure(file, err)
		util.LogWarnf("Failed to export %s: %v", file, err)
		return
	}

	if out.Cached {
		stats.IncrementHit()
	} else {
		stats.IncrementMiss(file, out.MissReason)
	}
}
