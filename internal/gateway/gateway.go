// Package gateway is the narrow capability boundary to the supervised
// OpenClaw gateway daemon. All integration happens through five fixed
// command templates (probe, status, sessions, cron, control) so the
// transport can be swapped without touching watchdog or store logic.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

// ErrInvalidAction is returned for control actions outside the
// start/stop/restart whitelist, before any command is issued.
var ErrInvalidAction = errors.New("invalid control action")

// Actions accepted by Control.
const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionRestart = "restart"
)

// Client issues the fixed command templates through a Runner.
type Client struct {
	runner  runner.Runner
	cli     string // gateway CLI binary, e.g. "openclaw"
	pattern string // process-match pattern for the liveness probe
}

func NewClient(r runner.Runner, cli, pattern string) *Client {
	if cli == "" {
		cli = "openclaw"
	}
	if pattern == "" {
		pattern = "openclaw-gateway"
	}
	return &Client{runner: r, cli: cli, pattern: pattern}
}

// Probe runs the process-match query. The raw result is returned so
// callers can distinguish "no match" (empty output) from command failure.
func (c *Client) Probe(ctx context.Context) runner.Result {
	return c.runner.Run(ctx, fmt.Sprintf("pgrep -f '%s'", c.pattern))
}

// Alive interprets a probe: the daemon counts as running only when the
// probe succeeded and matched at least one process.
func (c *Client) Alive(ctx context.Context) bool {
	res := c.Probe(ctx)
	return res.Success && strings.TrimSpace(res.Output) != ""
}

// Control issues start, stop or restart. Any other action is rejected
// before a command is spawned.
func (c *Client) Control(ctx context.Context, action string) (runner.Result, error) {
	switch action {
	case ActionStart, ActionStop, ActionRestart:
	default:
		return runner.Result{}, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	return c.runner.Run(ctx, fmt.Sprintf("%s gateway %s", c.cli, action)), nil
}

// Status returns the daemon's own status report as raw text.
func (c *Client) Status(ctx context.Context) runner.Result {
	return c.runner.Run(ctx, fmt.Sprintf("%s status", c.cli))
}

// Sessions lists the daemon's active sessions. A missing "sessions"
// field resolves to an empty slice.
func (c *Client) Sessions(ctx context.Context) ([]map[string]any, error) {
	res := c.runner.Run(ctx, fmt.Sprintf("%s sessions list --json", c.cli))
	if !res.Success {
		return nil, fmt.Errorf("sessions query failed: %s", res.Output)
	}
	return extractList(res.Output, "sessions")
}

// CronJobs lists the daemon's scheduled jobs. A missing "jobs" field
// resolves to an empty slice.
func (c *Client) CronJobs(ctx context.Context) ([]map[string]any, error) {
	res := c.runner.Run(ctx, fmt.Sprintf("%s cron list --json", c.cli))
	if !res.Success {
		return nil, fmt.Errorf("cron query failed: %s", res.Output)
	}
	return extractList(res.Output, "jobs")
}

// extractList decodes the JSON object starting at the first '{' in raw,
// tolerating any non-JSON preamble the CLI prints before it, and returns
// the named list field.
func extractList(raw, field string) ([]map[string]any, error) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, fmt.Errorf("no JSON object in output")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw[start:]), &doc); err != nil {
		return nil, fmt.Errorf("malformed JSON in output: %w", err)
	}

	rawList, ok := doc[field]
	if !ok {
		return []map[string]any{}, nil
	}

	var list []map[string]any
	if err := json.Unmarshal(rawList, &list); err != nil {
		return nil, fmt.Errorf("field %q is not a list of objects: %w", field, err)
	}
	if list == nil {
		list = []map[string]any{}
	}
	return list, nil
}
