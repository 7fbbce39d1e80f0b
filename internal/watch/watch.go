// Package watch rebuilds the site when notes or media change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/tkwsnb/notepress/internal/fileutil"
	"github.com/tkwsnb/notepress/internal/logger"
)

const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc is called once per burst of changes.
type RebuildFunc func(ctx context.Context) error

type Watcher struct {
	fs       afero.Fs
	dirs     []string
	rebuild  RebuildFunc
	log      logger.Logger
	Debounce time.Duration

	mu     sync.Mutex
	hashes map[string]string
}

// New watches dirs recursively. fs must be the filesystem fsnotify observes.
func New(fs afero.Fs, dirs []string, rebuild RebuildFunc, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		fs:       fs,
		dirs:     dirs,
		rebuild:  rebuild,
		log:      log,
		Debounce: DefaultDebounce,
		hashes:   map[string]string{},
	}
}

// Snapshot records the hash of every watched file so that later events for
// files whose content did not change are ignored.
func (w *Watcher) Snapshot() error {
	for _, dir := range w.dirs {
		err := afero.Walk(w.fs, dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !fileutil.IsWatched(path) {
				return nil
			}
			hash, err := fileutil.HashFile(w.fs, path)
			if err != nil {
				return fmt.Errorf("hash %s: %w", path, err)
			}
			w.mu.Lock()
			w.hashes[path] = hash
			w.mu.Unlock()
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Changed updates the recorded hash of path and reports whether it differs
// from the previous one. A file that can no longer be read counts as changed.
func (w *Watcher) Changed(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	hash, err := fileutil.HashFile(w.fs, path)
	if err != nil {
		delete(w.hashes, path)
		return true
	}
	if w.hashes[path] == hash {
		return false
	}
	w.hashes[path] = hash
	return true
}

// Watch blocks until ctx is cancelled, calling the rebuild func after each
// burst of relevant changes has settled.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := w.addRecursive(fw, dir); err != nil {
			return fmt.Errorf("add watch paths: %w", err)
		}
	}
	w.log.Infof("watching %s for changes", strings.Join(w.dirs, ", "))

	timer := time.NewTimer(w.Debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			// Also watch new directories
			if event.Has(fsnotify.Create) {
				if info, err := w.fs.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fw, event.Name); err != nil {
						w.log.Warnf("watch %s: %v", event.Name, err)
					}
					pending = true
					timer.Reset(w.Debounce)
					continue
				}
			}

			if !fileutil.IsWatched(event.Name) {
				continue
			}
			if !w.Changed(event.Name) {
				w.log.Debugf("unchanged: %s", event.Name)
				continue
			}
			w.log.Debugf("changed: %s (%s)", event.Name, event.Op)
			pending = true
			timer.Reset(w.Debounce)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if err := w.rebuild(ctx); err != nil {
				w.log.Errorf("rebuild failed: %v", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return afero.Walk(w.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
