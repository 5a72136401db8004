package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/core"
	"github.com/wooxi/openclaw-dashboard/internal/db"
	"github.com/wooxi/openclaw-dashboard/internal/events"
	"github.com/wooxi/openclaw-dashboard/internal/gateway"
	"github.com/wooxi/openclaw-dashboard/internal/metrics"
	"github.com/wooxi/openclaw-dashboard/internal/runner"
	"github.com/wooxi/openclaw-dashboard/internal/server"
	"github.com/wooxi/openclaw-dashboard/internal/watchdog"
)

func NewServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the watchdog loop and the dashboard server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runServe()
		},
	}

	return serveCmd
}

func runServe() {
	bus := events.NewBroadcaster()
	setupLogging(bus)

	store := configstore.New(
		core.GetGatewayConfigPath(),
		core.GetGatewayStablePath(),
		core.GetGatewayBackupDir(),
	)
	shell := &runner.ShellRunner{Timeout: core.GetCommandTimeout()}
	gw := gateway.NewClient(shell, core.GetGatewayCLI(), core.GetProcessPattern())

	database, err := db.Open(core.GetDBPath())
	if err != nil {
		slog.Error("failed to open database, continuing without audit trail", "error", err)
		database = nil
	} else {
		defer database.Close()
		if err := database.LogServiceEvent("start", fmt.Sprintf("watchdog started - version: %s, PID: %d", core.Version(), os.Getpid())); err != nil {
			slog.Error("failed to log service start", "error", err)
		}
	}

	watchdogOpts := []watchdog.Option{watchdog.WithInterval(core.GetCheckInterval())}
	if database != nil {
		watchdogOpts = append(watchdogOpts, watchdog.WithDatabase(database))
	}
	wd := watchdog.New(gw, store, bus, slog.Default(), watchdogOpts...)
	wd.Start()
	defer wd.Stop()

	srv := server.New(server.Config{
		Bind:     core.GetDashboardBind(),
		Token:    core.GetDashboardToken(),
		LogFile:  core.GetGatewayLogFile(),
		Store:    store,
		Gateway:  gw,
		Gatherer: metrics.NewGatherer(gw),
		Bus:      bus,
		Database: database,
		Logger:   slog.Default(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("dashboard server failed", "error", err)
	}

	if database != nil {
		database.LogServiceEvent("stop", "watchdog stopped")
	}
	slog.Info("shutdown complete")
}

// setupLogging tees structured logs to stderr and to connected dashboard
// observers via the broadcaster.
func setupLogging(bus *events.Broadcaster) {
	logWriter := &events.LogWriter{Broadcaster: bus}
	multiWriter := io.MultiWriter(os.Stderr, logWriter)

	handler := tint.NewHandler(multiWriter, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.DateTime,
	})
	slog.SetDefault(slog.New(handler))
}
