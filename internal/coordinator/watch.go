package coordinator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dtgoitia/healthsync/internal/domain"
)

// debounceDelay coalesces the burst of write events an atomic
// rewrite-and-rename produces into one reload.
const debounceDelay = 500 * time.Millisecond

// WatchSettingsFile watches the persistence file for writes made by
// another process (e.g. a companion settings UI editing apiUrl/apiToken
// directly) and republishes the loaded values through the
// SettingsStore. Best effort: a watcher error ends the watch with a
// warning, never the client. It returns immediately; the watch runs
// until ctx is cancelled.
func (c *Coordinator) WatchSettingsFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory, not the file: atomic rewrites replace the
	// inode, which silently detaches a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, c.reloadSettings)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("settings watch error", "err", err)
			}
		}
	}()
	return nil
}

// reloadSettings reads the persisted settings and applies them iff they
// differ from the in-memory value. The equality check matters: applying
// settings publishes an Updated event, which persists them again, which
// fires the watcher again; identical values must terminate that cycle.
func (c *Coordinator) reloadSettings() {
	snapshot, err := c.local.LoadAll()
	if err != nil {
		c.logger.Warn("reload settings failed", "err", err)
		return
	}
	loaded := snapshot.Settings
	current := c.settings.Get()
	if sameEndpoint(loaded, current) {
		return
	}
	if loaded.APIUrl == nil || loaded.APIToken == nil {
		c.logger.Debug("external settings edit left endpoint unconfigured, ignoring")
		return
	}
	c.logger.Info("settings changed externally, reloading", "apiUrl", *loaded.APIUrl)
	c.settings.SetEndpoint(*loaded.APIUrl, *loaded.APIToken)
}

func sameEndpoint(a, b domain.Settings) bool {
	eq := func(x, y *string) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	return eq(a.APIUrl, b.APIUrl) && eq(a.APIToken, b.APIToken)
}
