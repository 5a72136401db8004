package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

// fakeRunner records issued commands and replays canned results.
type fakeRunner struct {
	commands []string
	result   runner.Result
}

func (f *fakeRunner) Run(_ context.Context, command string) runner.Result {
	f.commands = append(f.commands, command)
	return f.result
}

func TestAlive(t *testing.T) {
	tests := []struct {
		name   string
		result runner.Result
		want   bool
	}{
		{"match found", runner.Result{Success: true, Output: "4242"}, true},
		{"empty output", runner.Result{Success: true, Output: ""}, false},
		{"whitespace only", runner.Result{Success: true, Output: "  \n"}, false},
		{"probe failed", runner.Result{Success: false, Output: "pgrep: error"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&fakeRunner{result: tt.result}, "", "")
			if got := c.Alive(context.Background()); got != tt.want {
				t.Errorf("Alive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestControlRejectsUnknownActionBeforeExecution(t *testing.T) {
	fr := &fakeRunner{result: runner.Result{Success: true}}
	c := NewClient(fr, "openclaw", "openclaw-gateway")

	_, err := c.Control(context.Background(), "reboot")
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
	if len(fr.commands) != 0 {
		t.Errorf("command was issued for rejected action: %v", fr.commands)
	}
}

func TestControlIssuesWhitelistedActions(t *testing.T) {
	for _, action := range []string{ActionStart, ActionStop, ActionRestart} {
		fr := &fakeRunner{result: runner.Result{Success: true, Output: "ok"}}
		c := NewClient(fr, "openclaw", "openclaw-gateway")

		res, err := c.Control(context.Background(), action)
		if err != nil {
			t.Fatalf("Control(%q) returned error: %v", action, err)
		}
		if !res.Success {
			t.Errorf("Control(%q) result not passed through", action)
		}
		if len(fr.commands) != 1 || fr.commands[0] != "openclaw gateway "+action {
			t.Errorf("unexpected command for %q: %v", action, fr.commands)
		}
	}
}

func TestSessionsToleratesPreamble(t *testing.T) {
	fr := &fakeRunner{result: runner.Result{
		Success: true,
		Output:  "loading config...\nwarning: slow disk\n{\"sessions\": [{\"id\": \"a1\"}, {\"id\": \"b2\"}]}",
	}}
	c := NewClient(fr, "", "")

	sessions, err := c.Sessions(context.Background())
	if err != nil {
		t.Fatalf("Sessions() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0]["id"] != "a1" {
		t.Errorf("unexpected first session: %v", sessions[0])
	}
}

func TestCronJobsMissingFieldResolvesToEmpty(t *testing.T) {
	fr := &fakeRunner{result: runner.Result{Success: true, Output: "{\"other\": 1}"}}
	c := NewClient(fr, "", "")

	jobs, err := c.CronJobs(context.Background())
	if err != nil {
		t.Fatalf("CronJobs() error: %v", err)
	}
	if jobs == nil || len(jobs) != 0 {
		t.Errorf("expected empty slice, got %v", jobs)
	}
}

func TestSessionsNoJSONInOutput(t *testing.T) {
	fr := &fakeRunner{result: runner.Result{Success: true, Output: "nothing useful here"}}
	c := NewClient(fr, "", "")

	if _, err := c.Sessions(context.Background()); err == nil {
		t.Error("expected error for output without JSON")
	}
}

func TestSessionsCommandFailure(t *testing.T) {
	fr := &fakeRunner{result: runner.Result{Success: false, Output: "connection refused"}}
	c := NewClient(fr, "", "")

	if _, err := c.Sessions(context.Background()); err == nil {
		t.Error("expected error for failed query")
	}
}
