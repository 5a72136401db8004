package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/core"
)

func NewRootCommand() *cobra.Command {
	var configPath string

	homeDir, _ := os.UserHomeDir()

	rootCmd := &cobra.Command{
		Use:   "openclaw-dashboard",
		Short: "Watchdog and dashboard for the OpenClaw gateway",
		Long: `Supervises a running OpenClaw gateway daemon: monitors process
liveness and configuration validity, recovers automatically from the
stable snapshot, and serves an authenticated dashboard API with live
log streaming.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return core.InitializeConfig(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config-path", filepath.Join(homeDir, core.BaseDirName),
		"config path",
	)

	rootCmd.AddCommand(
		NewServeCommand(),
		NewStatusCommand(),
		NewBackupsCommand(),
		NewRestoreCommand(),
		NewCheckCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
