package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wooxi/openclaw-dashboard/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWS upgrades the connection, announces which log file is being
// tailed, then streams log lines and broadcast events until the client
// disconnects. Each observer gets its own follow-process; closing the
// connection is the only cancellation signal.
func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", c.ClientIP(), "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	hello := map[string]any{
		"type": "hello",
		"file": s.cfg.LogFile,
	}
	if err := conn.WriteJSON(hello); err != nil {
		return
	}

	sub := s.cfg.Bus.Subscribe()
	defer s.cfg.Bus.Unsubscribe(sub)

	lines := make(chan string, 100)
	go func() {
		if err := tailFile(ctx, s.cfg.LogFile, lines); err != nil {
			s.logger.Warn("log tail ended", "file", s.cfg.LogFile, "error", err)
		}
	}()

	// Reads only serve to detect disconnect.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			ev := events.Event{Type: events.TypeLog, Payload: line, Timestamp: time.Now()}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
