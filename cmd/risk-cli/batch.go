package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/diabetes-risk-mcp-server/internal/batch"
	"github.com/diabetes-risk-mcp-server/internal/domain"
)

var batchCmd = &cobra.Command{
	Use:     "batch",
	Short:   "Score every patient in an xlsx workbook",
	Example: "  risk-cli batch --input patients.xlsx --output results.xlsx",
	RunE:    runBatch,
}

func init() {
	batchCmd.Flags().String("input", "", "Workbook whose first sheet has a header row of feature names")
	batchCmd.Flags().String("output", "", "Results workbook (default: <input>-results.xlsx)")
	_ = batchCmd.MarkFlagRequired("input")
}

func runBatch(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "-results.xlsx"
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	rows, err := batch.ReadRows(in)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	processor := batch.NewProcessor(a.Logger, a.Pipeline, a.Recorder)
	outcomes, err := processor.Process(cmd.Context(), uuid.New().String(), rows)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := batch.WriteResults(out, outcomes); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	summary := batch.Summarize(outcomes)
	fmt.Fprintf(cmd.OutOrStdout(), "Scored %d of %d rows (%d failed): %d high, %d medium, %d low\nResults written to %s\n",
		summary.Scored, summary.Total, summary.Failed,
		summary.ByRisk[domain.HIGH_RISK], summary.ByRisk[domain.MEDIUM_RISK], summary.ByRisk[domain.LOW_RISK],
		outputPath)
	return nil
}
