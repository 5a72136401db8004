// Package watchdog runs the periodic supervision loop: probe the gateway
// process, probe the live config file, and recover from the stable
// snapshot when either check fails. A failed recovery never crashes the
// loop; the next cycle simply tries again.
package watchdog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/db"
	"github.com/wooxi/openclaw-dashboard/internal/events"
	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

// DefaultInterval is the supervision period.
const DefaultInterval = 30 * time.Second

// Failure reasons reported in recovery events.
const (
	ReasonProcessNotRunning = "Process not running"
	ReasonInvalidConfig     = "Invalid Config JSON"
)

// Gateway is the slice of the gateway capability the watchdog needs.
type Gateway interface {
	Probe(ctx context.Context) runner.Result
	Control(ctx context.Context, action string) (runner.Result, error)
}

// HealthCheck is the transient per-cycle probe result.
type HealthCheck struct {
	ProcessAlive bool
	ConfigValid  bool
}

// Healthy reports whether the cycle found nothing to recover from.
func (h HealthCheck) Healthy() bool {
	return h.ProcessAlive && h.ConfigValid
}

// Watchdog owns the supervision loop. Start and Stop bracket one
// goroutine; cycles never overlap because the loop is single-threaded.
type Watchdog struct {
	gateway  Gateway
	store    *configstore.Store
	bus      *events.Broadcaster
	database *db.DB // optional audit trail
	logger   *slog.Logger
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithInterval overrides the supervision period.
func WithInterval(interval time.Duration) Option {
	return func(w *Watchdog) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// WithDatabase attaches the audit-trail store.
func WithDatabase(database *db.DB) Option {
	return func(w *Watchdog) { w.database = database }
}

func New(gw Gateway, store *configstore.Store, bus *events.Broadcaster, logger *slog.Logger, opts ...Option) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watchdog{
		gateway:  gw,
		store:    store,
		bus:      bus,
		logger:   logger,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the supervision loop. Calling Start on a running
// watchdog is a no-op.
func (w *Watchdog) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)

		// Check immediately, then on every tick.
		w.runCycle(ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runCycle(ctx)
			}
		}
	}()

	w.logger.Info("watchdog started", "interval", w.interval)
}

// Stop terminates the loop and waits for an in-flight cycle to finish.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.logger.Info("watchdog stopped")
}

// runCycle performs one supervision pass: liveness probe, parse-only
// config probe, and at most one recovery attempt per detected failure.
func (w *Watchdog) runCycle(ctx context.Context) HealthCheck {
	check := w.checkHealth(ctx)
	if check.Healthy() {
		w.logger.Info("gateway healthy")
		return check
	}

	reason := ReasonProcessNotRunning
	if check.ProcessAlive {
		reason = ReasonInvalidConfig
	}
	w.logger.Warn("gateway unhealthy, starting recovery", "reason", reason)
	w.recover(ctx, reason)
	return check
}

// checkHealth probes process liveness and config parseability. The
// config probe is deliberately parse-only: it catches corruption, not
// policy violations, so a parseable document missing required sections
// still counts as healthy here.
func (w *Watchdog) checkHealth(ctx context.Context) HealthCheck {
	var check HealthCheck

	probe := w.gateway.Probe(ctx)
	check.ProcessAlive = probe.Success && strings.TrimSpace(probe.Output) != ""
	if !check.ProcessAlive {
		return check
	}

	if _, err := w.store.Read(); err != nil {
		w.logger.Warn("config probe failed", "error", err)
		return check
	}
	check.ConfigValid = true
	return check
}

// recover restores the stable snapshot, preserving the broken live file
// under the corrupted tag, then issues restart and start commands. The
// start command covers the case where the daemon was not running at all,
// so restart had nothing to restart. Both commands are issued regardless
// of their individual outcome; exactly one recovery event is emitted.
func (w *Watchdog) recover(ctx context.Context, reason string) {
	if err := w.store.RestoreFromStable(true); err != nil {
		w.logger.Error("recovery aborted", "error", err)
		return
	}
	w.logger.Info("restored config from stable snapshot")

	restart, _ := w.gateway.Control(ctx, "restart")
	if !restart.Success {
		w.logger.Warn("restart command failed", "output", restart.Output)
	}
	start, _ := w.gateway.Control(ctx, "start")
	if !start.Success {
		w.logger.Warn("start command failed", "output", start.Output)
	}

	now := time.Now()
	w.bus.Publish(events.Event{
		Type:      events.TypeRecovery,
		Payload:   events.RecoveryPayload{Reason: reason, Timestamp: now},
		Timestamp: now,
	})

	if w.database != nil {
		if err := w.database.LogRecovery(reason, "restored from stable snapshot"); err != nil {
			w.logger.Error("failed to record recovery event", "error", err)
		}
	}

	w.logger.Info("recovery complete", "reason", reason)
}
