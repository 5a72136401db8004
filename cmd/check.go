package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wooxi/openclaw-dashboard/internal/configstore"
	"github.com/wooxi/openclaw-dashboard/internal/core"
)

func NewCheckCommand() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the live gateway configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			store := configstore.New(
				core.GetGatewayConfigPath(),
				core.GetGatewayStablePath(),
				core.GetGatewayBackupDir(),
			)

			doc, err := store.Read()
			if err != nil {
				fatalf("cannot read config: %v", err)
			}

			result := configstore.Validate(doc)
			if result.Valid {
				fmt.Println("Configuration is valid.")
				return
			}

			fmt.Println("Configuration is invalid:")
			for _, rule := range result.Errors {
				fmt.Printf("  - %s\n", rule)
			}
			os.Exit(1)
		},
	}

	return checkCmd
}
