package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/app"
	"github.com/diabetes-risk-mcp-server/internal/database"
	"github.com/diabetes-risk-mcp-server/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the Postgres audit schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := app.LoadConfig(configFile(cmd))
		if err != nil {
			return err
		}
		cfg := manager.GetConfig()
		logger := logging.NewWithOutput(cfg.Logging, os.Stderr)

		if down, _ := cmd.Flags().GetBool("down"); down {
			if err := database.RollbackAudit(cmd.Context(), cfg.Audit, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rolled back one migration")
			return nil
		}

		if err := database.MigrateAudit(cmd.Context(), cfg.Audit, logger); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations up to date")
		return nil
	},
}

func init() {
	migrateCmd.Flags().Bool("down", false, "Roll back the most recent migration instead of applying pending ones")
}
