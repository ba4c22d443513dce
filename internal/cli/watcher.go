package cli

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"larafront/pkg/livereload"
	"larafront/pkg/view"
)

const templateExt = ".html"

// viewWatcher keeps the template cache in step with a views directory and
// tells browsers to reload after each batch of changes.
type viewWatcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	views    *view.Engine
	hub      *livereload.Hub
	logger   *slog.Logger
	debounce time.Duration
}

func newViewWatcher(views *view.Engine, dir string, hub *livereload.Hub, logger *slog.Logger) (*viewWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &viewWatcher{fsw: fsw, dir: dir, views: views, hub: hub, logger: logger, debounce: 100 * time.Millisecond}

	// fsnotify is not recursive.
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *viewWatcher) Close() error { return w.fsw.Close() }

// Run applies events until ctx is done or the watcher is closed.
func (w *viewWatcher) Run(ctx context.Context) {
	w.logger.Info("👀 Watching templates for changes", "dir", w.dir)

	var timer *time.Timer
	var fire <-chan time.Time
	changed := 0

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.apply(ev) {
				changed++
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("⚠️  Watcher error", "error", err)
		case <-fire:
			fire = nil
			w.logger.Info("🎨 View change detected, reloading", "changes", changed)
			changed = 0
			w.hub.Broadcast("reload")
		}
	}
}

// apply updates the cache for one event and reports whether it touched a
// template.
func (w *viewWatcher) apply(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.fsw.Add(ev.Name)
			return false
		}
	}
	if !strings.HasSuffix(ev.Name, templateExt) {
		return false
	}
	name, ok := w.templateName(ev.Name)
	if !ok {
		return false
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.views.Templates().Remove(name)
		w.logger.Debug("template removed", "template", name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		body, err := os.ReadFile(ev.Name)
		if err != nil {
			w.logger.Warn("⚠️  Failed to reload template", "template", name, "error", err)
			return false
		}
		w.views.Register(name, string(body))
		w.logger.Debug("template reloaded", "template", name)
	default:
		return false
	}
	return true
}

func (w *viewWatcher) templateName(path string) (string, bool) {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), templateExt), true
}
