package bootstrap

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reports changes to one descriptor file. fsnotify does not follow
// symlinks, so the directory of the resolved target is watched as well.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	names    map[string]bool // Paths that count as the watched file
	debounce time.Duration
	onChange func(path string)
	logger   *logrus.Entry

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for path. onChange runs once per burst of
// writes, debounce after the last one.
func NewWatcher(path string, debounce time.Duration, onChange func(string), logger *logrus.Entry) (*Watcher, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	names := map[string]bool{abs: true}
	dirs := map[string]bool{filepath.Dir(abs): true}
	if target, err := filepath.EvalSymlinks(abs); err == nil && target != abs {
		names[target] = true
		dirs[filepath.Dir(target)] = true
		logger.Debugf("Watching symlink target: %s", target)
	}

	// Watch directories, not the file: editors replace files on save.
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return &Watcher{
		watcher:  watcher,
		path:     abs,
		names:    names,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}, nil
}

// Start watches until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.names[filepath.Clean(event.Name)] {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.stopTimer()
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.logger.Infof("Descriptor file changed: %s", filepath.Base(w.path))
		w.onChange(w.path)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.stopTimer()
	return w.watcher.Close()
}
