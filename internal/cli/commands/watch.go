package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapsense/internal/cli/output"
	"github.com/leapstack-labs/leapsense/pkg/analysis"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check a file every time it is saved",
		Long: `Watch a source file and report diagnostics after every change.

The first analysis is a full parse; later changes reuse the parsed unit
through an incremental reparse. Bursts of writes are coalesced by the
debounce interval (watch.debounce in leapsense.yaml).`,
		Example: `  # Watch a file
  leapsense watch main.cpp

  # Wait longer for editors that write in several steps
  leapsense watch main.cpp --debounce 300ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, args[0], debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Delay before re-checking after a change (default from config)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, path string, debounce time.Duration) error {
	cmdCtx := NewCommandContext(cmd)
	if debounce <= 0 {
		debounce = cmdCtx.Cfg.Watch.Debounce
	}

	s, err := cmdCtx.NewSession()
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	r := cmdCtx.Renderer
	w, err := newFileWatcher(path, debounce, s, cmdCtx.Logger)
	if err != nil {
		return err
	}
	w.report = func(res output.CheckOutput, err error) {
		r.Muted(fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), s.State()))
		if err != nil {
			r.Error(err.Error())
			return
		}
		res.Backend = cmdCtx.Cfg.Backend
		if rerr := renderDiagnostics(r, res); rerr != nil {
			cmdCtx.Logger.Error("failed to render diagnostics", "error", rerr)
		}
	}

	r.Muted(fmt.Sprintf("Watching %s (Ctrl+C to stop)", path))
	return w.Run(ctx)
}

// fileWatcher feeds every saved version of one file into a session.
type fileWatcher struct {
	name     string
	path     string
	debounce time.Duration
	session  *analysis.Session
	logger   *slog.Logger
	report   func(output.CheckOutput, error)
}

func newFileWatcher(name string, debounce time.Duration, s *analysis.Session, logger *slog.Logger) (*fileWatcher, error) {
	path, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot watch %s: %w", name, err)
	}
	return &fileWatcher{
		name:     name,
		path:     path,
		debounce: debounce,
		session:  s,
		logger:   logger,
		report:   func(output.CheckOutput, error) {},
	}, nil
}

// Run analyzes the file once, then again after each debounced change,
// until ctx is canceled.
func (w *fileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.name, err)
	}

	changed := make(chan struct{}, 1)
	w.analyze()

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return w.watchEvents(egctx, watcher, changed)
	})
	eg.Go(func() error {
		for {
			select {
			case <-egctx.Done():
				return nil
			case <-changed:
				w.analyze()
			}
		}
	})
	return eg.Wait()
}

func (w *fileWatcher) watchEvents(ctx context.Context, watcher *fsnotify.Watcher, changed chan<- struct{}) error {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != w.path {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				w.logger.Debug("file changed", "file", event.Name)
				select {
				case changed <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// analyze runs on a single goroutine; the session is not shared.
func (w *fileWatcher) analyze() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.report(output.CheckOutput{File: w.name}, fmt.Errorf("failed to read %s: %w", w.name, err))
		return
	}
	snap := analysis.NewSnapshot(w.name, data)
	diags, err := w.session.EnsureParsed(snap)
	w.report(output.CheckOutput{
		File:        w.name,
		Diagnostics: diags,
		Summary:     output.Summarize(diags),
	}, err)
}
