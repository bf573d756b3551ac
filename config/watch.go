package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
)

//Watch reloads the config at path whenever it changes and hands each valid
//result to fn. The directory is watched rather than the file because editors
//save by rename. Invalid edits are logged and skipped. Blocks until ctx ends
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(Config)) error {
	p, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}
	p, err = filepath.Abs(p)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(p)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(p), err)
	}
	logger.Debug("watching config", "path", p)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != p || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(p)
			if err != nil {
				logger.Warn("config reload failed", "path", p, "err", err)
				continue
			}
			logger.Info("config reloaded", "path", p)
			fn(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher", "err", err)
		}
	}
}
