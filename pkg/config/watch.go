package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const SETTLE_DURATION = 100 * time.Millisecond

// Watcher reprocesses a set of configuration files whenever one of them
// changes on disk. Editors often write a file in several steps, so changes are
// only processed once the files have been quiet for SETTLE_DURATION.
type Watcher struct {
	paths   []string
	watched map[string]struct{}
	watcher *fsnotify.Watcher
	Reloads chan *Config
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewWatcher(paths []string) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no config files to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := make(map[string]struct{})
	dirs := make(map[string]struct{})
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	// Watch directories rather than files so renames and recreations are seen.
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		paths:   paths,
		watched: watched,
		watcher: w,
		Reloads: make(chan *Config, 1),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Reloads)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) isWatched(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	_, ok := w.watched[abs]
	return ok
}

func (w *Watcher) run() {
	defer close(w.done)

	var settle <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !w.isWatched(event.Name) {
				continue
			}
			settle = time.After(SETTLE_DURATION)
		case <-settle:
			settle = nil
			config, err := Process(w.paths)
			if err != nil {
				w.send(nil, err)
				continue
			}
			w.send(config, nil)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(nil, err)
		case <-w.closeCh:
			return
		}
	}
}

// send delivers a result, replacing one the reader has not picked up yet.
func (w *Watcher) send(config *Config, err error) {
	if err != nil {
		select {
		case w.Errors <- err:
		default:
		}
		return
	}

	select {
	case <-w.Reloads:
	default:
	}
	select {
	case w.Reloads <- config:
	case <-w.closeCh:
	}
}
