package analyzer

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-rhythm-fusion/internal/data/cache"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// BatchStats counts what happened to every input of a batch run
type BatchStats struct {
	totalFiles  int64
	cacheHits   int64
	cacheMisses int64
	failures    int64
	mu          sync.Mutex
	missDetails []MissDetail
	failed      []Failure
}

// MissDetail records details of a cache miss
type MissDetail struct {
	FilePath string
	Reason   cache.CacheMissReason
}

// Failure records an input whose run was aborted
type Failure struct {
	FilePath string
	Err      error
}

func NewBatchStats() *BatchStats {
	return &BatchStats{
		missDetails: make([]MissDetail, 0),
	}
}

func (bs *BatchStats) IncrementTotal() {
	atomic.AddInt64(&bs.totalFiles, 1)
}

func (bs *BatchStats) IncrementHit() {
	atomic.AddInt64(&bs.cacheHits, 1)
}

// IncrementMiss increases the cache miss count and records the miss detail
func (bs *BatchStats) IncrementMiss(filePath string, reason cache.CacheMissReason) {
	atomic.AddInt64(&bs.cacheMisses, 1)

	bs.mu.Lock()
	bs.missDetails = append(bs.missDetails, MissDetail{FilePath: filePath, Reason: reason})
	bs.mu.Unlock()
}

// IncrementFailure records a failed input
func (bs *BatchStats) IncrementFailure(filePath string, err error) {
	atomic.AddInt64(&bs.failures, 1)

	bs.mu.Lock()
	bs.failed = append(bs.failed, Failure{FilePath: filePath, Err: err})
	bs.mu.Unlock()
}

// GetStats returns the current statistics and hit rate
func (bs *BatchStats) GetStats() (total, hits, misses, failures int64, hitRate float64) {
	total = atomic.LoadInt64(&bs.totalFiles)
	hits = atomic.LoadInt64(&bs.cacheHits)
	misses = atomic.LoadInt64(&bs.cacheMisses)
	failures = atomic.LoadInt64(&bs.failures)

	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	return
}

// Failures returns the failed inputs sorted by path
func (bs *BatchStats) Failures() []Failure {
	bs.mu.Lock()
	out := make([]Failure, len(bs.failed))
	copy(out, bs.failed)
	bs.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out
}

// MissReasons counts cache misses per reason
func (bs *BatchStats) MissReasons() map[cache.CacheMissReason]int {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	counts := make(map[cache.CacheMissReason]int)
	for _, detail := range bs.missDetails {
		counts[detail.Reason]++
	}
	return counts
}

func (bs *BatchStats) String() string {
	total, hits, misses, failures, _ := bs.GetStats()
	return fmt.Sprintf("%d inputs: %d processed, %d cached, %d failed", total, misses, hits, failures)
}

// PrintFinalStats logs the final statistics and a summary of cache miss reasons
func (bs *BatchStats) PrintFinalStats() {
	total, hits, misses, failures, hitRate := bs.GetStats()

	util.LogInfof("Batch complete: total files %d, cache hit rate %.1f%% (%d hits/%d misses/%d failures)",
		total, hitRate, hits, misses, failures)

	if misses > 0 {
		util.LogDebug("Cache miss reason summary:")
		for reason, count := range bs.MissReasons() {
			util.LogDebugf("  %s: %d files", reason, count)
		}
	}
	for _, f := range bs.Failures() {
		util.LogWarnf("Failed: %s: %v", f.FilePath, f.Err)
	}
}
