package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-rhythm-fusion/internal/util"
)

// FileEvent is a write or create on a watched file.
type FileEvent struct {
	Path      string
	Operation string
}

// FileWatcher reports changes to files whose name ends with one of the
// configured suffixes anywhere below the watched roots.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	suffixes []string
	events   chan FileEvent
	done     chan struct{}
}

func NewFileWatcher(paths []string, suffixes ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:  watcher,
		suffixes: suffixes,
		events:   make(chan FileEvent, 100),
		done:     make(chan struct{}),
	}

	for _, path := range paths {
		if err := fw.addPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go fw.processEvents()

	return fw, nil
}

func (fw *FileWatcher) addPath(path string) error {
	// Recursively add directories
	return filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return fw.watcher.Add(p)
		}
		return nil
	})
}

func (fw *FileWatcher) matches(name string) bool {
	if len(fw.suffixes) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, s := range fw.suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func (fw *FileWatcher) processEvents() {
	defer close(fw.events)
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New subdirectories are watched as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addPath(event.Name); err != nil {
						util.LogWarn("Failed to watch new directory " + event.Name + ": " + err.Error())
					}
					continue
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !fw.matches(event.Name) {
				continue
			}

			select {
			case fw.events <- FileEvent{Path: event.Name, Operation: event.Op.String()}:
			case <-fw.done:
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue running
			util.LogErrorf("File monitoring error: %v", err)
		}
	}
}

// Events is closed once the watcher stops.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

func (fw *FileWatcher) Close() error {
	close(fw.done)
	return fw.watcher.Close()
}
