// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

package pricing

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// OVERRIDE FILE WATCHER
// =============================================================================

// Watch reloads the table whenever the override file changes on disk.
// It blocks until the context is cancelled, so callers run it in a
// goroutine. The initial load happens before watching starts; a missing
// file at startup is an error, but transient reload failures only log.
func (t *Table) Watch(ctx context.Context, path string) error {
	if err := t.Reload(path); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save,
	// which drops the watch on the old inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := t.Reload(path); err != nil {
				log.Printf("PRICING_RELOAD_FAILED | path=%s error=%v", path, err)
				continue
			}
			log.Printf("PRICING_RELOADED | path=%s", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("PRICING_WATCH_ERROR | error=%v", err)
		}
	}
}
