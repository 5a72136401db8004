// Package server exposes the dashboard HTTP API and the realtime
// WebSocket channel. All sensitive routes sit behind shared-secret
// authentication; the watchdog loop runs independently of this server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/db"
	"github.com/wooxi/openclaw-dashboard/internal/events"
	"github.com/wooxi/openclaw-dashboard/internal/metrics"
	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

// GatewayAPI is the slice of the gateway capability the dashboard uses.
type GatewayAPI interface {
	Alive(ctx context.Context) bool
	Status(ctx context.Context) runner.Result
	Control(ctx context.Context, action string) (runner.Result, error)
	Sessions(ctx context.Context) ([]map[string]any, error)
	CronJobs(ctx context.Context) ([]map[string]any, error)
}

// Config collects the server's collaborators and settings.
type Config struct {
	Bind     string
	Token    string // shared secret; empty denies all sensitive routes
	LogFile  string // gateway log file announced and tailed on /ws
	Store    *configstore.Store
	Gateway  GatewayAPI
	Gatherer *metrics.Gatherer
	Bus      *events.Broadcaster
	Database *db.DB // optional
	Logger   *slog.Logger
}

// Server is the dashboard HTTP/WebSocket server.
type Server struct {
	cfg    Config
	logger *slog.Logger
	engine *gin.Engine
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{cfg: cfg, logger: logger}
	s.registerRoutes(engine)
	s.engine = engine
	return s
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)

	protected := api.Group("", s.authRequired())
	protected.GET("/sessions", s.handleSessions)
	protected.GET("/cron", s.handleCron)
	protected.POST("/control", s.handleControl)
	protected.GET("/config", s.handleConfigGet)
	protected.PUT("/config", s.handleConfigPut)
	protected.GET("/backups", s.handleBackups)
	protected.POST("/backups/:id/restore", s.handleRestore)
	protected.GET("/events", s.handleEvents)

	engine.GET("/ws", s.authRequired(), s.handleWS)
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled, then shuts down gracefully.
// The config-file watcher runs for the same lifetime.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Token == "" {
		s.logger.Warn("dashboard token is empty, all sensitive routes will be rejected")
	}

	go s.watchConfigFile(ctx)

	httpServer := &http.Server{
		Addr:              s.cfg.Bind,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "address", s.cfg.Bind)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
