package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/core"
)

func NewRestoreCommand() *cobra.Command {
	var fromStable bool

	restoreCmd := &cobra.Command{
		Use:   "restore [backup-id]",
		Short: "Restore the gateway configuration from a backup or the stable snapshot",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			store := configstore.New(
				core.GetGatewayConfigPath(),
				core.GetGatewayStablePath(),
				core.GetGatewayBackupDir(),
			)

			if fromStable {
				if err := store.RestoreFromStable(false); err != nil {
					fatalf("restore failed: %v", err)
				}
				fmt.Println("Restored from stable snapshot.")
				return
			}

			if len(args) != 1 {
				fatalf("a backup id is required unless --stable is given")
			}
			if err := store.RestoreFrom(args[0]); err != nil {
				fatalf("restore failed: %v", err)
			}
			fmt.Printf("Restored from %s.\n", args[0])
		},
	}
	restoreCmd.Flags().BoolVar(&fromStable, "stable", false, "Restore from the stable snapshot instead of a backup")

	return restoreCmd
}
