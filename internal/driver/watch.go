package driver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before running again.
const DefaultDebounce = 200 * time.Millisecond

// Watch runs the driver once, then again every time a netlist document
// under rootPath changes, until ctx is done. onRun receives the outcome of
// each run. Directories created after the first run are not watched.
func (d *Driver) Watch(ctx context.Context, rootPath string, debounce time.Duration, onRun func(*Result, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("resolve root: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	onRun(d.Run(ctx, absRoot))
	if d.Config == nil {
		return fmt.Errorf("no configuration loaded for %s", absRoot)
	}

	files, err := d.Config.ResolveFiles(absRoot)
	if err != nil {
		return fmt.Errorf("resolve files: %w", err)
	}
	dirs := map[string]bool{absRoot: true}
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !d.relevant(absRoot, ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		case <-fire:
			fire = nil
			onRun(d.Run(ctx, absRoot))
		}
	}
}

// relevant filters out events caused by the driver's own writes.
func (d *Driver) relevant(rootPath string, ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(ev.Name)
	if filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".tmp-") {
		return false
	}
	if suffix := d.Config.Output.Suffix; suffix != "" && strings.HasSuffix(name, suffix) {
		return false
	}
	return !strings.HasPrefix(ev.Name, d.Config.CacheDir(rootPath)+string(filepath.Separator))
}
