package rules

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const reloadDebounce = 500 * time.Millisecond

type ChangeHandler func(path string)

// FileWatcher reports changes to one file. It watches the parent directory
// because atomic saves replace the file rather than writing it in place.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	dir     string
	name    string
	handler ChangeHandler
	done    chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func NewFileWatcher(path string, handler ChangeHandler) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		dir:     dir,
		name:    filepath.Base(path),
		handler: handler,
		done:    make(chan struct{}),
	}

	go fw.watch()

	return fw, nil
}

// WatchStore reloads the store whenever its document changes on disk. Load
// failures keep the previous in-memory rules.
func WatchStore(store *FileStore) (*FileWatcher, error) {
	return NewFileWatcher(store.Path(), func(path string) {
		if err := store.Load(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("rules reload failed, keeping previous rules")
			return
		}
		log.Info().Str("path", path).Int("max_retries", store.MaxRetries()).Msg("rules reloaded")
	})
}

func (fw *FileWatcher) Close() error {
	close(fw.done)

	fw.mu.Lock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.mu.Unlock()

	return fw.watcher.Close()
}

func (fw *FileWatcher) watch() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if fw.shouldHandle(event) {
				fw.schedule(event.Name)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("watcher error")

		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) shouldHandle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Base(event.Name) == fw.name
}

// schedule coalesces bursts of events into one handler call.
func (fw *FileWatcher) schedule(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(reloadDebounce, func() {
		select {
		case <-fw.done:
			return
		default:
		}
		fw.handler(path)
	})
}
