package runtime

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/foundry/errors"
	"github.com/teranos/foundry/logger"
)

// DefaultDebounce settles rapid editor save events into one rerun.
const DefaultDebounce = 500 * time.Millisecond

// Watch blocks watching the pipeline document at path and invokes fn after
// each settled change until ctx is cancelled. Reruns are serialized: a
// change arriving while fn runs triggers the next invocation, never a
// concurrent one. fn owns its own error handling; a failed rerun must not
// kill the watch loop.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create file watcher")
	}
	defer watcher.Close()

	// Editors replace files by rename; watching the directory keeps events
	// flowing after the original inode disappears.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	log := logger.ComponentLogger("watch")
	log.Infow("watching pipeline document", logger.FieldPath, path)

	base := filepath.Base(path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugw("document changed", logger.FieldFile, event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case <-timerC:
			timer = nil
			timerC = nil
			fn()

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", logger.FieldError, werr)
		}
	}
}
