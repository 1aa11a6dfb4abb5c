package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/logfields"
)

// configReloader applies a changed config file.
type configReloader interface {
	ReloadConfig(path string) error
}

// ConfigWatcher reloads presets and priorities when the config file
// changes on disk, debouncing editor save bursts.
type ConfigWatcher struct {
	path     string
	reloader configReloader
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	reloadCh chan struct{}
	debounce time.Duration
}

// NewConfigWatcher builds a watcher for the given config file.
func NewConfigWatcher(path string, reloader configReloader) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, foundation.InternalError("failed to create file watcher").
			WithCause(err).
			WithComponent("config_watcher").
			Build()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, foundation.ConfigurationError("failed to resolve config path").
			WithCause(err).
			WithComponent("config_watcher").
			WithContext(foundation.Fields{"path": path}).
			Build()
	}

	return &ConfigWatcher{
		path:     abs,
		reloader: reloader,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		reloadCh: make(chan struct{}, 1),
		debounce: 2 * time.Second,
	}, nil
}

// Start begins watching. The containing directory is watched rather than
// the file itself so atomic-save editors (rename over the file) still fire.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	if err := cw.watcher.Add(filepath.Dir(cw.path)); err != nil {
		return foundation.ConfigurationError("failed to watch config directory").
			WithCause(err).
			WithComponent("config_watcher").
			WithContext(foundation.Fields{"path": cw.path}).
			Build()
	}

	slog.Info("Watching config file for preset changes", logfields.Path(cw.path))
	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

// Stop tears down the filesystem watcher.
func (cw *ConfigWatcher) Stop() {
	close(cw.stopCh)
	if err := cw.watcher.Close(); err != nil {
		slog.Warn("Error closing config watcher", logfields.Error(err))
	}
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	name := filepath.Base(cw.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopCh:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				cw.trigger()
			case event.Op.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.Path(cw.path))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Config watcher error", logfields.Error(err))
		}
	}
}

func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-cw.stopCh:
			stopTimer()
			return
		case <-cw.reloadCh:
			stopTimer()
			timer = time.AfterFunc(cw.debounce, func() {
				if err := cw.reloader.ReloadConfig(cw.path); err != nil {
					slog.Warn("Config reload failed, keeping previous config", logfields.Error(err))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) trigger() {
	select {
	case cw.reloadCh <- struct{}{}:
	default: // reload already pending
	}
}
