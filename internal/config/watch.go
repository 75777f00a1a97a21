package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

// Watch re-loads the config file on change and invokes onChange with the new
// config. Invalid intermediate states (editors writing partial files) are
// skipped: onChange only ever sees configs that pass Validate.
//
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, log logx.Logger, onChange func(*Config)) error {
	dir := filepath.Dir(path)
	file := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload skipped", logx.String("path", path), logx.Err(err))
				return
			}
			log.Info("config reloaded", logx.String("path", path))
			onChange(cfg)
		})
	}

	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return nil
		case ev := <-w.Events:
			if ev.Name == filepath.Join(dir, file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			}
		case <-w.Errors:
			// keep watching
		}
	}
}
