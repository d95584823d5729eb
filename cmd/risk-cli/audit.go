package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/app"
	"github.com/diabetes-risk-mcp-server/internal/audit"
	"github.com/diabetes-risk-mcp-server/internal/database"
	"github.com/diabetes-risk-mcp-server/internal/domain"
	"github.com/diabetes-risk-mcp-server/internal/logging"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the prediction audit log",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every audit entry as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := app.LoadConfig(configFile(cmd))
		if err != nil {
			return err
		}
		store, err := audit.Open(*manager.GetAuditConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer f.Close()
			out = f
		}
		return audit.ExportJSON(cmd.Context(), store, out)
	},
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count audited predictions per risk level (postgres driver only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := app.LoadConfig(configFile(cmd))
		if err != nil {
			return err
		}
		cfg := manager.GetConfig()
		if cfg.Audit.Driver != domain.AuditDriverPostgres {
			return fmt.Errorf("audit summary requires the postgres driver, got %q", cfg.Audit.Driver)
		}

		logger := logging.NewWithOutput(cfg.Logging, os.Stderr)
		db, err := database.NewConnection(cmd.Context(), database.ConfigFromAudit(cfg.Audit), logger)
		if err != nil {
			return err
		}
		defer db.Close()

		counts, err := db.AuditSummary(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range counts {
			fmt.Fprintf(out, "%s %-6s %d\n", c.Level.Icon(), c.Level, c.Count)
		}

		stats := db.Stats()
		fmt.Fprintf(out, "pool: total=%d idle=%d acquired=%d max=%d\n",
			stats.TotalConns(), stats.IdleConns(), stats.AcquiredConns(), stats.MaxConns())
		return nil
	},
}

func init() {
	auditExportCmd.Flags().String("output", "", "Write to file instead of stdout")

	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditSummaryCmd)
}
