package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/svgview/internal/storage"
)

// EventCallback is called after a watcher-driven change.
// kind is one of "created", "updated", "deleted"; path is workspace-relative.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the workspace root and turns SVG file
// changes into document change events until ctx is cancelled. It calls cb
// (if non-nil) after each change.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass, which also catches
// editors that save by renaming a temp file over the original.
func (w *Workspace) Watch(ctx context.Context, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.Root()
	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}
	w.prime()

	w.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile(cb)

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
					if hidden(info.Name()) {
						continue
					}
					if addErr := addDirsRecursive(fw, abs); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", abs),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", abs))
					}
					w.scanDir(abs, cb)
					continue
				}
			}

			if !storage.IsSVGFile(abs) {
				continue
			}
			rel := w.store.Rel(abs)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				if w.fileChanged(abs) {
					w.logger.Debug("watcher: changed", slog.String("path", rel), slog.String("op", kind))
					if cb != nil {
						cb(kind, rel)
					}
				}

			case ev.Op&fsnotify.Remove != 0:
				if w.forget(abs) {
					w.logger.Debug("watcher: deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create if it stays in a watched dir.
				if w.forget(abs) && cb != nil {
					cb("deleted", rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// prime records the current checksum of every file so the first write
// event for unchanged content is ignored.
func (w *Workspace) prime() {
	files, err := w.store.List("")
	if err != nil {
		w.logger.Warn("watcher: initial scan failed", slog.String("error", err.Error()))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range files {
		w.versions[filepath.Join(w.store.Root(), filepath.FromSlash(f.Path))] = f.Checksum
	}
}

// reconcile compares the known versions with the disk: vanished files are
// forgotten and new or modified files fire a change.
func (w *Workspace) reconcile(cb EventCallback) {
	known := w.knownVersions()

	files, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[filepath.Join(w.store.Root(), filepath.FromSlash(f.Path))] = f.Checksum
	}

	for abs := range known {
		if _, ok := disk[abs]; !ok && w.forget(abs) {
			w.logger.Debug("reconcile: removed stale", slog.String("path", abs))
			if cb != nil {
				cb("deleted", w.store.Rel(abs))
			}
		}
	}

	for abs, sum := range disk {
		if known[abs] == sum {
			continue
		}
		if w.fileChanged(abs) {
			w.logger.Debug("reconcile: changed", slog.String("path", abs))
			if cb != nil {
				cb("created", w.store.Rel(abs))
			}
		}
	}
}

// scanDir fires changes for SVG files found in a newly created directory.
func (w *Workspace) scanDir(dir string, cb EventCallback) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsSVGFile(path) {
			return nil
		}
		if w.fileChanged(path) {
			w.logger.Debug("watcher: found in new dir", slog.String("path", path))
			if cb != nil {
				cb("created", w.store.Rel(path))
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
