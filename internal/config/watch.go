package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchSettings watches the settings file for changes and hot-reloads
// the global Config whenever it is written, mirroring the host
// service's database/settings watcher. It runs until ctx is canceled.
func WatchSettings(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(SettingsPath())
	if err := EnsureDataDir(); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != SettingsPath() {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := Load()
				if err != nil {
					log.Warn().Err(err).Msg("config: reload failed, keeping previous config")
					continue
				}
				Set(reloaded)
				log.Info().Msg("config: settings file changed, configuration reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config: watcher error")
			}
		}
	}()

	return nil
}
