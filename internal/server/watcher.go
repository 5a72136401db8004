package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wooxi/openclaw-dashboard/internal/events"
)

// watchConfigFile publishes a config_changed event whenever the live
// config file is rewritten, so connected dashboards can refresh. The
// parent directory is watched because editors and the recovery path
// replace the file rather than writing in place. Events are debounced;
// a burst of writes produces one notification.
func (s *Server) watchConfigFile(ctx context.Context) {
	livePath := s.cfg.Store.LivePath

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.logger.Warn("config watcher unavailable", "error", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(livePath)); err != nil {
		s.logger.Warn("config watcher unavailable", "path", livePath, "error", err)
		return
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(livePath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				s.cfg.Bus.Publish(events.Event{
					Type:    events.TypeConfigChanged,
					Payload: map[string]string{"path": livePath},
				})
				s.logger.Info("live config changed", "path", livePath)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("config watcher error", "error", err)
		}
	}
}
