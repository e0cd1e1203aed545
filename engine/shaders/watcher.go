// Package shaders watches shader sources on disk and retires pipelines
// built from them when the files change.
package shaders

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/TQwan/SpartanEngine/engine/core"
	"github.com/TQwan/SpartanEngine/engine/renderer/rhi"
)

// Invalidator evicts pipelines referencing a shader. Satisfied by
// rhi.PipelineCache.
type Invalidator interface {
	InvalidateShader(shaderID string) int
}

// Watcher maps filesystem write events to shader staleness and pipeline
// cache eviction. Events arrive on the watcher goroutine; the shaders flip
// an atomic flag the submission thread reads.
type Watcher struct {
	cache    Invalidator
	fsnotify *fsnotify.Watcher

	mutex    sync.RWMutex
	byPath   map[string][]*rhi.Shader
	isClosed bool

	done chan struct{}
}

func NewWatcher(cache Invalidator) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		cache:    cache,
		fsnotify: fsWatch,
		byPath:   make(map[string][]*rhi.Shader),
		done:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() {
	go w.run()
}

// Register ties a shader to its SourcePath. The containing directory is
// watched, not the file: editors replace files on save, which drops
// file-level watches.
func (w *Watcher) Register(shader *rhi.Shader) error {
	if shader == nil || shader.SourcePath == "" {
		return errors.New("shaders: shader has no source path")
	}

	path, err := filepath.Abs(shader.SourcePath)
	if err != nil {
		return err
	}

	w.mutex.Lock()
	if w.isClosed {
		w.mutex.Unlock()
		return errors.New("shaders: watcher already closed")
	}
	w.byPath[path] = append(w.byPath[path], shader)
	w.mutex.Unlock()

	return w.fsnotify.Add(filepath.Dir(path))
}

// WatchDir watches a whole shader directory tree in addition to registered
// files.
func (w *Watcher) WatchDir(dir string) error {
	return filepath.Walk(dir, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return w.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					w.fsnotify.Add(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handleFileEvent(e.Name)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("shaders: watch error: %s", err)

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) handleFileEvent(name string) {
	path, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mutex.RLock()
	stale := w.byPath[path]
	w.mutex.RUnlock()
	if len(stale) == 0 {
		return
	}

	for _, shader := range stale {
		shader.MarkStale()
		evicted := 0
		if w.cache != nil {
			evicted = w.cache.InvalidateShader(shader.ID)
		}
		core.LogInfo("shaders: '%s' changed on disk, %d pipelines retired", shader.Name, evicted)
	}
}

func (w *Watcher) Close() {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.isClosed {
		return
	}
	w.isClosed = true
	close(w.done)
}
