package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-rhythm-fusion/internal/core/fusion"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonParams
	MissReasonNotFound
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "cache read error"
	case MissReasonInode:
		return "input inode changed"
	case MissReasonSize:
		return "input size changed"
	case MissReasonModTime:
		return "input modification time changed"
	case MissReasonFingerprint:
		return "input fingerprint changed"
	case MissReasonParams:
		return "fusion parameters changed"
	case MissReasonNotFound:
		return "cache not found"
	default:
		return "unknown reason"
	}
}

// fingerprintGrace skips the content fingerprint for inputs untouched this long.
const fingerprintGrace = 48 * time.Hour

// FileStamp identifies the version of one input file an entry was built from.
type FileStamp struct {
	Path        string `json:"path"`
	Inode       uint64 `json:"inode"`
	Size        int64  `json:"size"`
	ModTime     int64  `json:"modTime"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// Entry is one cached fusion result.
type Entry struct {
	Key        string         `json:"key"`
	Source     string         `json:"source"`
	ParamsKey  string         `json:"paramsKey"`
	Deps       []FileStamp    `json:"deps"`
	SampleRate int            `json:"sampleRate"`
	FrameRate  float64        `json:"frameRate"`
	Result     *fusion.Result `json:"result"`
	CreatedAt  int64          `json:"createdAt"`
}

type CacheResult struct {
	Entry      *Entry
	Found      bool
	MissReason CacheMissReason
}

type Cache interface {
	Get(key, paramsKey string) CacheResult
	Set(key string, entry *Entry, deps []string) error
	Clear() error
	Preload() error
}

// KeyFor derives the cache key of an input path.
func KeyFor(source string) string {
	return util.HashString(util.ExpandPath(source))
}

type FileCache struct {
	baseDir     string
	mu          sync.RWMutex
	memoryCache map[string]*Entry
}

func NewFileCache(baseDir string) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &FileCache{
		baseDir:     baseDir,
		memoryCache: make(map[string]*Entry),
	}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.baseDir, key+".json")
}

func (c *FileCache) Get(key, paramsKey string) CacheResult {
	c.mu.RLock()
	mem, ok := c.memoryCache[key]
	c.mu.RUnlock()

	entry := mem
	if !ok {
		var err error
		entry, err = readEntry(c.path(key))
		if os.IsNotExist(err) {
			return CacheResult{MissReason: MissReasonNotFound}
		}
		if err != nil {
			util.LogDebugf("Cache read failed for %s: %v", key, err)
			return CacheResult{MissReason: MissReasonError}
		}
	}

	if entry.ParamsKey != paramsKey {
		return CacheResult{MissReason: MissReasonParams}
	}
	if reason := validate(entry); reason != MissReasonNone {
		c.mu.Lock()
		delete(c.memoryCache, key)
		c.mu.Unlock()
		return CacheResult{MissReason: reason}
	}

	if !ok {
		c.mu.Lock()
		c.memoryCache[key] = entry
		c.mu.Unlock()
	}
	return CacheResult{Entry: entry, Found: true}
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Result == nil {
		return nil, fmt.Errorf("cache entry %s has no result", path)
	}
	return &entry, nil
}

// validate checks that every input still matches its recorded stamp.
func validate(entry *Entry) CacheMissReason {
	for _, dep := range entry.Deps {
		current, err := util.GetFileInfo(dep.Path)
		if err != nil {
			util.LogDebugf("Cache validation failed for %s: %v", dep.Path, err)
			return MissReasonError
		}
		if current.Inode != dep.Inode {
			return MissReasonInode
		}
		if current.Size != dep.Size {
			return MissReasonSize
		}
		if current.ModTime != dep.ModTime {
			return MissReasonModTime
		}

		if time.Since(time.Unix(current.ModTime, 0)) > fingerprintGrace {
			continue
		}
		fingerprint, err := util.CalculateFileFingerprint(dep.Path)
		if err != nil || fingerprint != dep.Fingerprint {
			util.LogDebugf("Cache invalidated for %s: fingerprint mismatch (cached: %s, current: %s)",
				dep.Path, dep.Fingerprint, fingerprint)
			return MissReasonFingerprint
		}
	}
	return MissReasonNone
}

// Stamp records the current version of each dependency path.
func Stamp(deps []string) ([]FileStamp, error) {
	stamps := make([]FileStamp, 0, len(deps))
	for _, p := range deps {
		info, err := util.GetFileInfo(p)
		if err != nil {
			return nil, err
		}
		stamp := FileStamp{Path: p, Inode: info.Inode, Size: info.Size, ModTime: info.ModTime}
		if fp, err := util.CalculateFileFingerprint(p); err == nil {
			stamp.Fingerprint = fp
		}
		stamps = append(stamps, stamp)
	}
	return stamps, nil
}

func (c *FileCache) Set(key string, entry *Entry, deps []string) error {
	stamps, err := Stamp(deps)
	if err != nil {
		return err
	}
	entry.Key = key
	entry.Deps = stamps
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	data, err := sonic.Marshal(entry)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.baseDir, key+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	c.memoryCache[key] = entry
	return nil
}

func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]*Entry)

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(c.baseDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

type preloadResult struct {
	key   string
	entry *Entry
	err   error
}

// Preload loads every valid entry into memory using a worker pool.
func (c *FileCache) Preload() error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(c.baseDir, e.Name()))
		}
	}
	if len(files) == 0 {
		util.LogDebug("Cache directory is empty, skipping preload")
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	jobs := make(chan string, len(files))
	results := make(chan preloadResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				entry, err := readEntry(path)
				results <- preloadResult{
					key:   strings.TrimSuffix(filepath.Base(path), ".json"),
					entry: entry,
					err:   err,
				}
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	go func() {
		wg.Wait()
		close(results)
	}()

	loaded, invalid, failed := 0, 0, 0
	for r := range results {
		switch {
		case r.err != nil:
			failed++
			util.LogDebugf("Failed to preload cache file %s: %v", r.key, r.err)
		case validate(r.entry) != MissReasonNone:
			invalid++
		default:
			c.mu.Lock()
			c.memoryCache[r.key] = r.entry
			c.mu.Unlock()
			loaded++
		}
	}

	util.LogDebugf("Cache preload complete: %d loaded, %d invalid, %d errors (total %d)",
		loaded, invalid, failed, len(files))
	return nil
}

// Len returns the number of entries held in memory.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memoryCache)
}
