// Package watcher observes the managed local tree and stamps edits onto
// the repository, so the next reconciliation pass sees them as local
// changes. It never talks to the server itself; it only nudges the sync
// loop through its change channel.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skydrift/skydrift/internal/files"
)

const (
	// debounceTick and debounceQuiet batch rapid writes: a file only
	// counts as edited once no event arrived for the quiet window.
	debounceTick  = 500 * time.Millisecond
	debounceQuiet = 300 * time.Millisecond
)

// Store is the slice of the repository the watcher writes to.
type Store interface {
	GetByPath(account, remotePath string) (*files.Node, error)
	SaveNode(account string, node *files.Node) error
}

// Watcher turns filesystem events under one account's managed tree into
// repository stamps and change signals.
type Watcher struct {
	account  string
	saveRoot string
	store    Store
	logger   *slog.Logger

	// C signals that at least one local edit was recorded. Buffered with
	// one slot; a slow consumer coalesces signals instead of queueing.
	C chan struct{}

	fsw *fsnotify.Watcher
}

// New creates a watcher for one account rooted at saveRoot.
func New(account, saveRoot string, store Store, logger *slog.Logger) *Watcher {
	return &Watcher{
		account:  account,
		saveRoot: saveRoot,
		store:    store,
		logger:   logger,
		C:        make(chan struct{}, 1),
	}
}

// Watch blocks until the context is cancelled, recording local edits as
// they settle. Directories are watched recursively, including ones
// created while watching.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.fsw = fsw
	defer fsw.Close()

	accountDir := filepath.Join(w.saveRoot, w.account)

	if err := os.MkdirAll(accountDir, 0o700); err != nil {
		return fmt.Errorf("creating account dir: %w", err)
	}

	if err := w.addRecursive(accountDir); err != nil {
		return fmt.Errorf("watching account dir: %w", err)
	}

	w.logger.Info("file watcher started", slog.String("dir", accountDir))

	pending := make(map[string]time.Time)

	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if w.shouldIgnore(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = time.Now()

				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(event.Name)
					}
				}
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
				_ = fsw.Remove(event.Name)

				// A vanished copy is the engine's call to make: the next
				// pass notices the missing file and re-downloads it.
				w.signal()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			now := time.Now()

			for path, seen := range pending {
				if now.Sub(seen) < debounceQuiet {
					continue
				}

				delete(pending, path)
				w.recordEdit(path)
			}
		}
	}
}

// recordEdit stamps the device mtime onto the repository row for an
// edited file, making it a pending local change for the engine.
func (w *Watcher) recordEdit(absPath string) {
	info, err := os.Stat(absPath)
	if err != nil {
		// Deleted between the event and the tick.
		return
	}

	if info.IsDir() {
		return
	}

	remotePath, ok := w.remotePathFor(absPath)
	if !ok {
		return
	}

	node, err := w.store.GetByPath(w.account, remotePath)
	if err != nil {
		w.logger.Warn("reading repository row",
			slog.String("path", remotePath),
			slog.String("error", err.Error()),
		)

		return
	}

	if node == nil {
		// Never synced: the row appears once the server lists the file.
		w.logger.Debug("edit to untracked file", slog.String("path", remotePath))
		w.signal()

		return
	}

	node.StoragePath = absPath
	node.LocalModifiedAt = info.ModTime().UnixMilli()

	if err := w.store.SaveNode(w.account, node); err != nil {
		w.logger.Warn("stamping local edit",
			slog.String("path", remotePath),
			slog.String("error", err.Error()),
		)

		return
	}

	w.logger.Debug("local edit recorded", slog.String("path", remotePath))
	w.signal()
}

// remotePathFor maps an absolute device path back to its remote path.
func (w *Watcher) remotePathFor(absPath string) (string, bool) {
	accountDir := filepath.Join(w.saveRoot, w.account)

	rel, err := filepath.Rel(accountDir, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}

	return files.NormalizeRemotePath(filepath.ToSlash(rel), false), true
}

func (w *Watcher) signal() {
	select {
	case w.C <- struct{}{}:
	default:
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if w.shouldIgnore(path) {
				return filepath.SkipDir
			}

			return w.fsw.Add(path)
		}

		return nil
	})
}

func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor droppings and our own in-flight downloads.
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") || strings.HasSuffix(base, ".part") {
		return true
	}

	return false
}
