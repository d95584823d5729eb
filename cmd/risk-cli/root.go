package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/app"
)

var rootCmd = &cobra.Command{
	Use:           "risk-cli",
	Short:         "Diabetes risk screening from the command line",
	Long:          "risk-cli scores patient measurements with the configured diabetes model. Results are not a medical diagnosis.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides the search paths)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(installCmd)
}

func configFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// newApp boots the application with logs on stderr so stdout stays parseable.
func newApp(cmd *cobra.Command, skipAudit bool) (*app.App, error) {
	return app.New(app.Options{
		ConfigFile: configFile(cmd),
		LogOutput:  os.Stderr,
		SkipAudit:  skipAudit,
	})
}
