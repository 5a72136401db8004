package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/core"
)

func NewVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(core.Version())
		},
	}

	return versionCmd
}
