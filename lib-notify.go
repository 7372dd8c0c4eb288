package main

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// rerunEvent is true when ev changed the watched file's content. Editors
// often replace a file instead of writing it, so Create counts too.
func rerunEvent(ev fsnotify.Event, target string) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(target) {
		return false
	}
	return ev.Op&fsnotify.Write == fsnotify.Write || ev.Op&fsnotify.Create == fsnotify.Create
}

// watchAndRun calls run once, then again every time path changes, until
// ctx is cancelled. Failures from run go to report and watching continues.
func watchAndRun(ctx context.Context, path string, run func() error, report func(error)) error {

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating watcher")
	}
	defer watcher.Close()

	// the directory rather than the file, so replaced files are still seen
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}

	if err := run(); err != nil {
		report(err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !rerunEvent(ev, path) {
				continue
			}
			glog.V(2).Infof("watch: %s changed (%s), re-running", ev.Name, ev.Op)
			if err := run(); err != nil {
				report(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			report(errors.Wrap(err, "watcher"))
		}
	}
}
