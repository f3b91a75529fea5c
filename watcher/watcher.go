// Package watcher invalidates the sample-listing cache when the library
// directory changes on disk.
package watcher

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"samplecrate/logger"
)

// Watcher observes the library tree and fires a callback on file changes.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Start begins watching root and every directory below it. onChange is
// called for each create, remove, rename or write event under the tree;
// directories created later are picked up as their create events arrive.
func Start(root string, onChange func()) (*Watcher, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range collectDirs(root) {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go w.loop(onChange)

	logger.Info("watching library directory", logger.String("root", root))
	return w, nil
}

// collectDirs returns root and all directories below it. Unreadable
// subtrees are skipped rather than failing the whole walk.
func collectDirs(root string) []string {
	dirs := make([]string, 0, 8)
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("library walk error", logger.String("path", path), logger.ErrorField(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs
}

func (w *Watcher) loop(onChange func()) {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				logger.Debug("library change detected",
					logger.String("path", event.Name),
					logger.String("op", event.Op.String()))
				if event.Op&fsnotify.Create != 0 {
					w.watchIfDir(event.Name)
				}
				onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("library watch error", logger.ErrorField(err))
		case <-w.done:
			return
		}
	}
}

// watchIfDir adds a newly created directory (and anything already nested
// inside it) to the watch set.
func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	for _, dir := range collectDirs(path) {
		if err := w.fsw.Add(dir); err != nil {
			logger.Warn("failed to watch new directory", logger.String("dir", dir), logger.ErrorField(err))
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
