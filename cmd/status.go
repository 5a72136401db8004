package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/core"
	"github.com/wooxi/openclaw-dashboard/internal/gateway"
	"github.com/wooxi/openclaw-dashboard/internal/metrics"
	"github.com/wooxi/openclaw-dashboard/internal/runner"
)

func NewStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show gateway liveness and host metrics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			shell := &runner.ShellRunner{Timeout: core.GetCommandTimeout()}
			gw := gateway.NewClient(shell, core.GetGatewayCLI(), core.GetProcessPattern())
			gatherer := metrics.NewGatherer(gw)

			detailed, _ := cmd.Flags().GetBool("detailed")
			ctx := context.Background()

			var snapshot metrics.Snapshot
			var err error
			if detailed {
				snapshot, err = gatherer.Gather(ctx, true)
			} else {
				snapshot, err = gatherer.GatherLight(ctx)
			}
			if err != nil {
				fatalf("failed to gather metrics: %v", err)
			}

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "json":
				data, _ := json.MarshalIndent(snapshot, "", "  ")
				fmt.Println(string(data))
			case "text":
				printSnapshot(snapshot)
			default:
				fatalf("unknown format %q", format)
			}
		},
	}
	statusCmd.Flags().StringP("format", "F", "text", "Format to use (text/json)")
	statusCmd.Flags().BoolP("detailed", "d", false, "Also query the gateway's own status command")

	return statusCmd
}

func printSnapshot(snapshot metrics.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})

	if snapshot.ProcessAlive != nil {
		state := "not running"
		if *snapshot.ProcessAlive {
			state = "running"
		}
		t.AppendRow(table.Row{"Gateway", state})
	}
	t.AppendRow(table.Row{"Memory used", fmt.Sprintf("%.1f%%", snapshot.Memory.UsedPercent)})
	t.AppendRow(table.Row{
		"Load average",
		fmt.Sprintf("%.2f %.2f %.2f", snapshot.Load.Load1, snapshot.Load.Load5, snapshot.Load.Load15),
	})
	t.AppendRow(table.Row{"Uptime", fmt.Sprintf("%ds", snapshot.UptimeSeconds)})
	t.Render()

	if snapshot.Gateway != nil {
		fmt.Println()
		fmt.Println("Gateway status:")
		fmt.Println(snapshot.Gateway.Output)
	}
}
