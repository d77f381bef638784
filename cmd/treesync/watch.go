package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/treesync/internal/snapshot"
)

// defaultDebounce coalesces editor save sequences (write, rename, chmod)
// into one report.
const defaultDebounce = 200 * time.Millisecond

// defaultIgnores are skipped under every watched root.
var defaultIgnores = []string{".git", "*.swp", "*.swo", "*~", ".DS_Store"}

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Watch a directory and report affected instances as files change",
	Long:  "Watches DIR (default: the working directory) recursively and prints the instances invalidated by each batch of changes until interrupted.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	root, err := resolveFilePath(dir)
	if err != nil {
		return outputError("watch", err)
	}

	t, dbPath, err := openTracker(false)
	if err != nil {
		return outputError("watch", err)
	}
	defer t.Close()

	ignores, err := watchIgnores(root, filepath.Dir(dbPath))
	if err != nil {
		return outputError("watch", err)
	}
	if projectFile := cfg.GetString("project"); projectFile != "" {
		pctx, err := loadProjectContext(projectFile)
		if err != nil {
			return outputError("watch", err)
		}
		ignores = ignores.WithIgnorePaths(pctx.IgnorePaths()...)
	}

	w, err := newDirWatcher(root, ignores, cfg.GetDuration("debounce"))
	if err != nil {
		return outputError("watch", err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", root)
	err = w.Run(cmd.Context(), func(ctx context.Context, changed []string) error {
		refs, err := t.Affected(changed...)
		if err != nil {
			return err
		}
		if refs == nil {
			refs = []string{}
		}
		return outputResult(CLIResult{
			Command: "watch",
			Results: CLIWatchEvent{Changed: changed, Affected: refs},
		})
	})
	if err != nil {
		return outputError("watch", err)
	}
	return nil
}

// watchIgnores builds the context of paths the watcher never reports: the
// default editor and VCS noise under root, plus the database directory.
func watchIgnores(root, dbDir string) (snapshot.InstanceContext, error) {
	globs := make([]snapshot.IgnoreGlob, 0, len(defaultIgnores)+2)
	for _, pattern := range defaultIgnores {
		g, err := snapshot.NewIgnoreGlob(root, pattern)
		if err != nil {
			return snapshot.InstanceContext{}, err
		}
		globs = append(globs, g)
	}
	gitContents, err := snapshot.NewIgnoreGlob(root, "**/.git/**")
	if err != nil {
		return snapshot.InstanceContext{}, err
	}
	db, err := snapshot.NewIgnoreGlob(filepath.Dir(dbDir), filepath.Base(dbDir)+"/**")
	if err != nil {
		return snapshot.InstanceContext{}, err
	}
	return snapshot.NewInstanceContext(append(globs, gitContents, db)...), nil
}

// dirWatcher reports debounced batches of changed paths under a root.
type dirWatcher struct {
	fsw      *fsnotify.Watcher
	root     string
	ignores  snapshot.InstanceContext
	debounce time.Duration
}

func newDirWatcher(root string, ignores snapshot.InstanceContext, debounce time.Duration) (*dirWatcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &dirWatcher{fsw: fsw, root: root, ignores: ignores, debounce: debounce}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// ignored reports whether path is excluded, logging the rule that excluded
// it.
func (w *dirWatcher) ignored(path string) bool {
	rule, ok := w.ignores.Ignores(path)
	if ok {
		logger.Debug("watch: ignoring path", zap.String("path", path), zap.Stringer("rule", rule))
	}
	return ok
}

// addTree registers dir and every non-ignored directory beneath it.
func (w *dirWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("watch: skipping inaccessible path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks until ctx is cancelled, calling onChange with the sorted,
// deduplicated absolute paths of each batch. Callback errors are logged and
// do not stop the watcher.
func (w *dirWatcher) Run(ctx context.Context, onChange func(context.Context, []string) error) error {
	defer w.fsw.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if w.ignored(evt.Name) {
				continue
			}
			// Extend the watch to directories created after startup.
			if evt.Has(fsnotify.Create) {
				if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
					if err := w.addTree(evt.Name); err != nil {
						logger.Warn("watch: add directory", zap.Error(err))
					}
				}
			}
			pending[evt.Name] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			logger.Debug("watch: batch ready", zap.Int("paths", len(changed)))
			if err := onChange(ctx, changed); err != nil {
				logger.Error("watch: callback failed", zap.Error(err))
				fmt.Fprintf(os.Stderr, "watch: %v\n", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logger.Warn("watch: event queue overflowed; some changes were missed")
				continue
			}
			fmt.Fprintf(os.Stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}
