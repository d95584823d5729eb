package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/setup"
)

var installCmd = &cobra.Command{
	Use:   "mcp-install",
	Short: "Register the MCP server with the desktop MCP client",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("client-config")
		if path == "" {
			var err error
			if path, err = setup.DefaultClientConfigPath(); err != nil {
				return err
			}
		}
		binary, _ := cmd.Flags().GetString("binary")
		modelPath, _ := cmd.Flags().GetString("model")

		entry, err := setup.Register(path, setup.Options{
			BinaryPath: binary,
			ConfigFile: configFile(cmd),
			ModelPath:  modelPath,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Registered %s (%s) in %s\n", setup.ServerName, entry.Command, path)
		for _, issue := range setup.Check(path) {
			fmt.Fprintf(out, "⚠️  %s\n", issue)
		}
		return nil
	},
}

func init() {
	installCmd.Flags().String("client-config", "", "Client config file (default: the desktop client's location for this OS)")
	installCmd.Flags().String("binary", "", "Path to the mcp-server binary (default: search PATH)")
	installCmd.Flags().String("model", "", "ONNX model artifact exported to the server environment")
}
