package logfinder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WaitForLatestLog returns dir/logs/latest.log, blocking until the file is
// created when it does not exist yet. dir must be an existing directory;
// the logs subdirectory may appear later.
func WaitForLatestLog(ctx context.Context, dir string) (string, error) {
	if p, err := FindLatestLogFile(dir); err == nil {
		return p, nil
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrServerDirNotFound, dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return "", fmt.Errorf("watching server directory: %w", err)
	}
	logsDir := filepath.Join(dir, filepath.Dir(filepath.FromSlash(LatestLogPath)))
	_ = w.Add(logsDir) // added again once it is created

	// The file may have appeared before the watches were in place.
	if p, err := FindLatestLogFile(dir); err == nil {
		return p, nil
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return "", ErrNoLogFiles
			}
			if ev.Name == logsDir && ev.Has(fsnotify.Create) {
				_ = w.Add(logsDir)
			}
			if p, err := FindLatestLogFile(dir); err == nil {
				return p, nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return "", ErrNoLogFiles
			}
			return "", fmt.Errorf("watching server directory: %w", err)
		}
	}
}
