package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Benny93/reactome-sbml/internal/storage"
)

// DefaultDebounce is the quiet period after the last write before re-exporting.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	Options

	// Debounce is the quiet period before re-exporting. Zero uses DefaultDebounce.
	Debounce time.Duration

	// OnExport is called after every run, failed or not. Nil prints failures
	// to stderr.
	OnExport func(*Result, error)
}

// Watch exports from the JSON dump at dumpPath, then re-exports whenever the
// file changes. A failed run is reported and watching continues.
// Blocks until the context is cancelled.
func Watch(ctx context.Context, dumpPath string, opts WatchOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	report := opts.OnExport
	if report == nil {
		report = func(_ *Result, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			}
		}
	}

	absPath, err := filepath.Abs(dumpPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dumpPath, err)
	}

	// Create file watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	runOnce := func() {
		result, err := exportDump(ctx, absPath, opts.Options)
		report(result, err)
	}
	runOnce()

	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop() // Don't start yet

	logger.Debug("watching", zap.String("path", absPath))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-batchTimer.C:
			runOnce()
		}
	}
}

func exportDump(ctx context.Context, path string, opts Options) (*Result, error) {
	src, err := storage.LoadJSON(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	return Run(ctx, src, opts)
}
