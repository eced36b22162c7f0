package filestore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchUnsupported is returned by Watch on non-OS filesystems.
var ErrWatchUnsupported = errors.New("watch requires an OS-backed store")

// Watch reports edits made to collection files by other processes. onChange
// receives the collection name. Writes made through this store are
// recognised by checksum and skipped. Watch returns once the watcher is
// running; it stops when ctx ends or Close is called.
func (s *Store) Watch(ctx context.Context, onChange func(collection string)) error {
	if !s.osFS {
		return ErrWatchUnsupported
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Renames replace the inode, so watch the directory rather than files.
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.watchMu.Lock()
	if s.stop != nil {
		s.watchMu.Unlock()
		cancel()
		watcher.Close()
		return errors.New("watch already running")
	}
	s.stop = func() error {
		cancel()
		err := watcher.Close()
		<-done
		return err
	}
	s.watchMu.Unlock()

	go func() {
		defer close(done)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if c := s.collectionOf(event); c != "" {
					onChange(c)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watch error", "error", err)
			}
		}
	}()

	s.logger.Info("watching data dir", "dir", s.dir)
	return nil
}

// collectionOf maps a filesystem event to the collection it changed, or ""
// when the event is irrelevant or caused by this store.
func (s *Store) collectionOf(event fsnotify.Event) string {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return ""
	}
	base := filepath.Base(event.Name)
	name, ok := strings.CutSuffix(base, "."+s.codec.ext())
	if !ok {
		return "" // temp files and sidecars
	}
	switch name {
	case CollectionTasks, CollectionHabits, CollectionNotes:
	default:
		return ""
	}
	if s.ownWrite(event.Name) {
		return ""
	}
	s.logger.Debug("external change", "collection", name, "op", event.Op.String())
	return name
}
