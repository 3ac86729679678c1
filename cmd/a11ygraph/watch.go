package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"a11ygraph/internal/dialect"
	"a11ygraph/internal/driver"
	"a11ygraph/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [path...]",
	Short: "Re-check the workspace whenever a source file changes",
	Long: `Watch runs a workspace check, then re-runs it after every burst of file
changes. Each changed file also gets an immediate single-file pass.`,
	Args: cobra.ArbitraryArgs,
	RunE: runWatch,
}

func init() {
	checkFlags(watchCmd)
	outputFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", session.DefaultDebounce, "quiet period before a workspace pass")
}

// watcher serializes output from passes that finish on different goroutines.
type watcher struct {
	cmd   *cobra.Command
	p     *pipeline
	out   io.Writer
	quiet bool
	mu    sync.Mutex
}

func (w *watcher) published(snap *session.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.quiet {
		fmt.Fprintf(w.out, "--- pass %d (%s) finished %s ---\n",
			snap.Generation, snap.Scope, snap.Finished.Format(time.TimeOnly))
	}
	if err := render(w.cmd, w.out, w.p, snap.Result); err != nil {
		slog.Error("render failed", "err", err)
	}
}

func (w *watcher) fileChecked(path string, snap *session.Snapshot) {
	if w.quiet {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(os.Stderr, "%s: %d issue(s) in a %s pass\n", path, len(snap.Result.Issues), snap.Scope)
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := newPipeline(cmd, args)
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	ctx := cmd.Context()

	w := &watcher{cmd: cmd, p: p, out: cmd.OutOrStdout(), quiet: quiet}
	sess := session.New(ctx, session.Options{
		Roots:      args,
		List:       p.list,
		Check:      p.check,
		Debounce:   debounce,
		Logger:     slog.Default(),
		OnSnapshot: w.published,
	})
	defer sess.Close()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	roots := args
	if len(roots) == 0 {
		roots = []string{"."}
	}
	for _, root := range roots {
		if err := watchTree(fsw, root, p.list); err != nil {
			return err
		}
	}

	sess.Schedule()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "err", err)
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			handleEvent(ctx, fsw, sess, w, p.list, ev)
		}
	}
}

func handleEvent(ctx context.Context, fsw *fsnotify.Watcher, sess *session.Session, w *watcher, list driver.ListOptions, ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if err := watchTree(fsw, ev.Name, list); err != nil {
				slog.Warn("cannot watch new directory", "dir", ev.Name, "err", err)
			}
			sess.Schedule()
			return
		}
	}
	if !dialect.Supported(ev.Name) {
		return
	}
	slog.Debug("source changed", "file", ev.Name, "op", ev.Op.String())
	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
		go func(path string) {
			snap, err := sess.CheckFile(ctx, path)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, session.ErrStale) {
					slog.Warn("file pass failed", "file", path, "err", err)
				}
				return
			}
			w.fileChecked(path, snap)
		}(ev.Name)
	}
	sess.Schedule()
}

// watchTree adds root and every directory holding a supported source.
// fsnotify is not recursive.
func watchTree(fsw *fsnotify.Watcher, root string, list driver.ListOptions) error {
	st, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !st.IsDir() {
		return fsw.Add(filepath.Dir(root))
	}
	dirs := map[string]bool{filepath.Clean(root): true}
	files, err := driver.ListSources(root, list)
	if err != nil {
		return err
	}
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	return nil
}
