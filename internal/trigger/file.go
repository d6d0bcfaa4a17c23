package trigger

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"hexpi/internal/logger"
)

// File fires when the watched file is created or written, e.g.
//
//	touch /tmp/hexpi.resume && echo > /tmp/hexpi.resume
//
// The parent directory is watched so the file need not exist beforehand.
type File struct {
	path  string
	fired chan struct{}
	sctx  *stopper.Context
}

// NewFile starts watching path. The watcher runs until Close or until ctx is done.
func NewFile(ctx context.Context, path string) (*File, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	f := &File{
		path:  path,
		fired: make(chan struct{}, 1),
		sctx:  stopper.WithContext(ctx),
	}

	f.sctx.Defer(func() {
		_ = watcher.Close()
	})

	f.sctx.Go(func(sctx *stopper.Context) error {
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case <-sctx.Done():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if event.Op&fsnotify.Write == 0 && event.Op&fsnotify.Create == 0 {
					continue
				}
				select {
				case f.fired <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("trigger", "file watcher error on %s: %v", path, err)
			}
		}
	})

	return f, nil
}

// Name returns "file".
func (f *File) Name() string {
	return "file"
}

// Path returns the watched file.
func (f *File) Path() string {
	return f.path
}

// Wait blocks until the file changes after the call. Changes that happened
// before Wait are discarded.
func (f *File) Wait(ctx context.Context) error {
	select {
	case <-f.fired:
	default:
	}

	select {
	case <-f.fired:
		return nil
	case <-f.sctx.Stopping():
		return ErrClosed
	case <-f.sctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (f *File) Close() error {
	f.sctx.Stop(0)
	return f.sctx.Wait()
}
