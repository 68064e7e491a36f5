package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phazurlabs/openclaw-fortress/internal/audit"
	"github.com/phazurlabs/openclaw-fortress/internal/config"
)

// Reloader watches the config file and hot-reloads channel allowlists.
// Only allowlist sections are re-applied; listener, keys, and storage
// paths require a restart.
type Reloader struct {
	watcher *fsnotify.Watcher
	handler *Handler
	log     *audit.Log
	path    string
}

// NewReloader creates a file watcher for the config path.
func NewReloader(handler *Handler, log *audit.Log, path string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pipeline: create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("pipeline: watch %q: %w", path, err)
	}
	return &Reloader{watcher: watcher, handler: handler, log: log, path: path}, nil
}

// Run watches for config changes and reloads allowlists. Blocks until
// ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	// Debounce: wait 500ms after last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, r.reload)
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	cfg, err := config.Load(r.path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
		r.log.Error("config_reload_failed", audit.Fields{
			Details: map[string]any{"error": err.Error()},
		})
		return
	}
	r.handler.ReloadAllowlists(cfg)
	fmt.Fprintf(os.Stderr, "hot-reload: allowlists reloaded\n")
	r.log.Info("config_reloaded", audit.Fields{
		Details: map[string]any{"path": r.path},
	})
}
