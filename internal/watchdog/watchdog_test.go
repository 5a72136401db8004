package watchdog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/events"
	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

func quietLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(99)}))
}

type fakeGateway struct {
	probe   runner.Result
	actions []string
}

func (f *fakeGateway) Probe(context.Context) runner.Result {
	return f.probe
}

func (f *fakeGateway) Control(_ context.Context, action string) (runner.Result, error) {
	f.actions = append(f.actions, action)
	return runner.Result{Success: true, Output: "ok"}, nil
}

const stableConfig = `{"gateway":{"port":18789,"auth":{"token":"stable-token-value"}},"agents":{}}`

func newTestStore(t *testing.T, liveContent, stableContent string) *configstore.Store {
	t.Helper()
	dir := t.TempDir()
	store := configstore.New(
		filepath.Join(dir, "openclaw.json"),
		filepath.Join(dir, "openclaw.stable.json"),
		filepath.Join(dir, "backups"),
	)
	if liveContent != "" {
		if err := os.WriteFile(store.LivePath, []byte(liveContent), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if stableContent != "" {
		if err := os.WriteFile(store.StablePath, []byte(stableContent), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func drainRecoveries(ch chan events.Event) []events.Event {
	var recoveries []events.Event
	for {
		select {
		case ev := <-ch:
			if ev.Type == events.TypeRecovery {
				recoveries = append(recoveries, ev)
			}
		default:
			return recoveries
		}
	}
}

func TestHealthyCycleHasNoSideEffects(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: "4242"}}
	store := newTestStore(t, stableConfig, stableConfig)
	bus := events.NewBroadcaster()
	ch := bus.Subscribe()

	w := New(gw, store, bus, quietLogger(t))
	check := w.runCycle(context.Background())

	if !check.Healthy() {
		t.Fatalf("expected healthy, got %+v", check)
	}
	if len(gw.actions) != 0 {
		t.Errorf("control commands issued on healthy cycle: %v", gw.actions)
	}
	if recoveries := drainRecoveries(ch); len(recoveries) != 0 {
		t.Errorf("unexpected recovery events: %v", recoveries)
	}
}

func TestProcessAbsentTriggersExactlyOneRecovery(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: ""}}
	store := newTestStore(t, `{"broken`, stableConfig)
	bus := events.NewBroadcaster()
	ch := bus.Subscribe()

	w := New(gw, store, bus, quietLogger(t))
	check := w.runCycle(context.Background())

	if check.ProcessAlive {
		t.Fatal("empty probe output must count as not running")
	}

	// One corrupted copy preserved.
	entries, _ := os.ReadDir(store.BackupDir)
	corrupted := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "corrupted-") {
			corrupted++
		}
	}
	if corrupted != 1 {
		t.Errorf("expected 1 corrupted copy, got %d", corrupted)
	}

	// Live file is byte-identical to the stable snapshot.
	live, _ := os.ReadFile(store.LivePath)
	if string(live) != stableConfig {
		t.Error("live file does not match stable snapshot after recovery")
	}

	// Restart and start were both issued, in that order.
	if len(gw.actions) != 2 || gw.actions[0] != "restart" || gw.actions[1] != "start" {
		t.Errorf("expected [restart start], got %v", gw.actions)
	}

	// Exactly one recovery event with the triggering reason.
	recoveries := drainRecoveries(ch)
	if len(recoveries) != 1 {
		t.Fatalf("expected exactly 1 recovery event, got %d", len(recoveries))
	}
	payload := recoveries[0].Payload.(events.RecoveryPayload)
	if payload.Reason != ReasonProcessNotRunning {
		t.Errorf("expected reason %q, got %q", ReasonProcessNotRunning, payload.Reason)
	}
}

func TestFailedProbeCommandTriggersRecovery(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: false, Output: "pgrep: something broke"}}
	store := newTestStore(t, stableConfig, stableConfig)
	bus := events.NewBroadcaster()
	ch := bus.Subscribe()

	w := New(gw, store, bus, quietLogger(t))
	w.runCycle(context.Background())

	recoveries := drainRecoveries(ch)
	if len(recoveries) != 1 {
		t.Fatalf("expected 1 recovery event, got %d", len(recoveries))
	}
	if recoveries[0].Payload.(events.RecoveryPayload).Reason != ReasonProcessNotRunning {
		t.Error("failed probe must be treated as process not running")
	}
}

func TestMalformedConfigTriggersRecovery(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: "4242"}}
	store := newTestStore(t, `{"broken`, stableConfig)
	bus := events.NewBroadcaster()
	ch := bus.Subscribe()

	w := New(gw, store, bus, quietLogger(t))
	check := w.runCycle(context.Background())

	if check.ConfigValid {
		t.Fatal("malformed config must fail the probe")
	}
	recoveries := drainRecoveries(ch)
	if len(recoveries) != 1 {
		t.Fatalf("expected 1 recovery event, got %d", len(recoveries))
	}
	if recoveries[0].Payload.(events.RecoveryPayload).Reason != ReasonInvalidConfig {
		t.Errorf("expected reason %q", ReasonInvalidConfig)
	}
}

// A parseable document missing required sections passes the light check:
// the per-cycle probe only catches corruption, not policy violations.
func TestParseOnlyCheckIgnoresStructuralViolations(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: "4242"}}
	store := newTestStore(t, `{"gateway":{"port":18789,"auth":{"token":"t"}}}`, stableConfig)
	bus := events.NewBroadcaster()

	w := New(gw, store, bus, quietLogger(t))
	check := w.runCycle(context.Background())

	if !check.Healthy() {
		t.Error("parse-only check must accept a document missing the agents section")
	}
	if len(gw.actions) != 0 {
		t.Errorf("no recovery expected, got %v", gw.actions)
	}
}

func TestMissingStableSnapshotAbortsRecovery(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: ""}}
	store := newTestStore(t, `{"broken`, "")
	bus := events.NewBroadcaster()
	ch := bus.Subscribe()

	before, _ := os.ReadFile(store.LivePath)

	w := New(gw, store, bus, quietLogger(t))
	w.runCycle(context.Background())

	after, _ := os.ReadFile(store.LivePath)
	if string(before) != string(after) {
		t.Error("live file changed despite aborted recovery")
	}
	if len(gw.actions) != 0 {
		t.Errorf("no restart expected after aborted recovery, got %v", gw.actions)
	}
	if recoveries := drainRecoveries(ch); len(recoveries) != 0 {
		t.Errorf("no recovery event expected, got %d", len(recoveries))
	}
}

func TestStartStopLifecycle(t *testing.T) {
	gw := &fakeGateway{probe: runner.Result{Success: true, Output: "4242"}}
	store := newTestStore(t, stableConfig, stableConfig)

	w := New(gw, store, events.NewBroadcaster(), quietLogger(t), WithInterval(10*time.Millisecond))
	w.Start()
	w.Start() // second Start is a no-op

	time.Sleep(50 * time.Millisecond)
	w.Stop()
	w.Stop() // second Stop is a no-op
}
