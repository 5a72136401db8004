// Package metrics samples host memory, load and uptime on demand, and
// optionally attaches the gateway's own status report.
package metrics

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

// Memory is the sampled host memory state.
type Memory struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Free        uint64  `json:"free"`
	UsedPercent float64 `json:"used_percent"`
}

// Load is the host load average triple.
type Load struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Snapshot is one on-demand sample. Gateway is populated only for
// detailed queries; ProcessAlive only for lightweight ones.
type Snapshot struct {
	Memory        Memory         `json:"memory"`
	Load          Load           `json:"load"`
	UptimeSeconds uint64         `json:"uptime_seconds"`
	ProcessAlive  *bool          `json:"process_alive,omitempty"`
	Gateway       *runner.Result `json:"gateway,omitempty"`
	SampledAt     time.Time      `json:"sampled_at"`
}

// GatewayProber is the slice of the gateway capability the gatherer
// needs: a full status query and a cheap liveness probe.
type GatewayProber interface {
	Status(ctx context.Context) runner.Result
	Alive(ctx context.Context) bool
}

// Gatherer samples the host and, on request, the gateway.
type Gatherer struct {
	gateway GatewayProber
}

func NewGatherer(gw GatewayProber) *Gatherer {
	return &Gatherer{gateway: gw}
}

// Gather samples host metrics. When detailed is set it also runs the
// gateway status command and attaches the raw result.
func (g *Gatherer) Gather(ctx context.Context, detailed bool) (Snapshot, error) {
	snapshot, err := g.sampleHost(ctx)
	if err != nil {
		return snapshot, err
	}

	if detailed && g.gateway != nil {
		status := g.gateway.Status(ctx)
		snapshot.Gateway = &status
	}
	return snapshot, nil
}

// GatherLight trades detail for latency: instead of the full status
// query it performs only the liveness probe.
func (g *Gatherer) GatherLight(ctx context.Context) (Snapshot, error) {
	snapshot, err := g.sampleHost(ctx)
	if err != nil {
		return snapshot, err
	}

	if g.gateway != nil {
		alive := g.gateway.Alive(ctx)
		snapshot.ProcessAlive = &alive
	}
	return snapshot, nil
}

func (g *Gatherer) sampleHost(ctx context.Context) (Snapshot, error) {
	snapshot := Snapshot{SampledAt: time.Now()}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snapshot, err
	}
	snapshot.Memory = Memory{
		Total:       vm.Total,
		Used:        vm.Used,
		Free:        vm.Available,
		UsedPercent: vm.UsedPercent,
	}

	if avg, err := load.AvgWithContext(ctx); err == nil {
		snapshot.Load = Load{Load1: avg.Load1, Load5: avg.Load5, Load15: avg.Load15}
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		snapshot.UptimeSeconds = uptime
	}

	return snapshot, nil
}
