package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/core"
)

func NewBackupsCommand() *cobra.Command {
	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "List rotated configuration backups, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store := configstore.New(
				core.GetGatewayConfigPath(),
				core.GetGatewayStablePath(),
				core.GetGatewayBackupDir(),
			)

			backups, err := store.ListBackups()
			if err != nil {
				fatalf("failed to list backups: %v", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"ID", "Created"})
			for _, backup := range backups {
				t.AppendRow(table.Row{backup.ID, backup.CreatedAt.Format(time.DateTime)})
			}
			t.Render()
		},
	}

	return backupsCmd
}
