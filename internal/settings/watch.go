package settings

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads h whenever its file is written, created or renamed into
// place. It blocks until ctx is done. The parent directory is watched so
// editors that replace the file are picked up.
func Watch(ctx context.Context, h *Holder, logger *slog.Logger) error {
	if h.path == "" {
		<-ctx.Done()
		return nil
	}
	dir := filepath.Dir(h.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(h.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}
			s := h.Reload()
			if logger != nil {
				logger.Info("settings reloaded", "path", h.path, "default_database", s.DefaultDatabase, "top_tables_limit", s.TopTablesLimit)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.Warn("settings watch", "err", err)
			}
		}
	}
}
