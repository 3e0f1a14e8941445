package loader

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// Watcher reports changes to a document file and the resources next to it.
type Watcher struct {
	watcher *fsnotify.Watcher
	target  string
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func NewWatcher(file string) (*Watcher, error) {
	target, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Editors replace files on save, so the directory is watched rather
	// than the file itself.
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		target:  target,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.relevant(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err == nil && abs == w.target {
		return true
	}
	return isResourceFile(name)
}

func isResourceFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin", ".png", ".jpg", ".jpeg", ".webp", ".wav", ".mp3":
		return true
	}
	return false
}

// Watch re-imports path into a freshly reset scene every time it or one of
// its resources changes, until ctx is done. onReload receives the outcome of
// each reload and runs on the caller's goroutine.
func (l *Loader) Watch(ctx context.Context, path string, onReload func(bool)) error {
	w, err := NewWatcher(path)
	if err != nil {
		return err
	}
	return l.watch(ctx, w, path, onReload)
}

func (l *Loader) watch(ctx context.Context, w *Watcher, path string, onReload func(bool)) error {
	defer w.Close()
	l.logger.Printf("Loader: watching %s", path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			l.logger.Printf("Loader: %s changed, reloading %s", filepath.Base(name), path)
			l.scene.Reset()
			l.LoadDocumentIntoWorld(ctx, path, onReload)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Printf("Loader: error: watch %s: %v", path, err)
		}
	}
}
