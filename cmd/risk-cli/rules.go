package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/service"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the risk factor rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := service.NewExplanationEngine(logrus.StandardLogger())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tFIELD\tRULE\tMESSAGE")
		for _, r := range engine.Rules() {
			fmt.Fprintf(w, "%s\t%s\t%s %g\t%s\n", r.Code, r.Field, r.Comparison, r.Threshold, r.Message)
		}
		return w.Flush()
	},
}
