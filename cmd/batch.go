package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/batch"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Analyze every CSV file in a directory",
	Long: `Analyze every CSV file in a directory concurrently and export a report
for each dataset, plus an HTML summary of the whole batch. Files that fail to
parse are reported and skipped; they do not stop the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var (
	batchRulesDir     string
	batchUseLLM       bool
	batchModel        string
	batchConcurrency  int
	batchExport       string
	batchOutputDir    string
	batchFailOnReject bool
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchRulesDir, "rules", "", "rules directory (default from config)")
	batchCmd.Flags().BoolVar(&batchUseLLM, "llm", false, "ask the configured model for each verdict")
	batchCmd.Flags().StringVar(&batchModel, "model", "", "model to use with --llm (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "datasets analyzed in parallel (default from config)")
	batchCmd.Flags().StringVar(&batchExport, "export", "json", "report files to write per dataset (json, html, both)")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "directory for exported reports (default from config)")
	batchCmd.Flags().BoolVar(&batchFailOnReject, "fail-on-reject", false, "exit with code 1 when any dataset is rejected")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := validateExportFormat(batchExport); err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	catalog, _, err := loadCatalog(cfg, batchRulesDir, verbose)
	if err != nil {
		return err
	}

	files, err := batch.DiscoverCSVFiles(args[0])
	if err != nil {
		return err
	}

	concurrency := batchConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Batch.Concurrency
	}
	outputDir := batchOutputDir
	if outputDir == "" {
		outputDir = cfg.Batch.OutputDir
	}

	fmt.Printf("Found %d CSV files in %s\n\n", len(files), args[0])

	analyzer := newDatasetAnalyzer(cfg, catalog, batchUseLLM, batchModel)
	runner := batch.NewRunner(func(ctx context.Context, path string) (*report.QualityReport, error) {
		result, _, err := analyzer.analyzePath(ctx, path)
		return result, err
	}, concurrency)
	if stderrIsTerminal() {
		runner.SetProgress(os.Stderr)
	}

	results, err := runner.Run(cmd.Context(), files)
	if err != nil {
		return err
	}

	printBatchResults(results)

	exporter, err := report.NewExporter(outputDir)
	if err != nil {
		return err
	}
	if err := exportBatchReports(exporter, results, analyzer); err != nil {
		return err
	}

	counts := batch.CountDecisions(results)
	processed := len(results) - batch.FailureCount(results)

	if processed > 0 {
		if _, err := exporter.ExportBatchSummary(batch.SummaryEntries(results), ""); err != nil {
			return fmt.Errorf("failed to export batch summary: %w", err)
		}
	}

	printBatchSummary(processed, len(results), counts, exporter.OutputDir())

	if batchFailOnReject && counts[report.DecisionReject] > 0 {
		os.Exit(1)
	}
	return nil
}

func printBatchResults(results []batch.Result) {
	for i, result := range results {
		name := filepath.Base(result.File)
		if result.Err != nil {
			fmt.Printf("[%d/%d] %s: failed: %v\n", i+1, len(results), name, result.Err)
			continue
		}
		fmt.Printf("[%d/%d] %s: %s (%d issues)\n",
			i+1, len(results), name, result.Report.Decision, len(result.Report.Issues))
	}
}

func exportBatchReports(exporter *report.Exporter, results []batch.Result, analyzer *datasetAnalyzer) error {
	for _, result := range results {
		if result.Err != nil {
			continue
		}

		metadata := map[string]any{
			"source_file":   result.File,
			"agent_version": analyzer.agentVersion(),
			"analyzed_at":   time.Now().Format(time.RFC3339),
		}
		base := csvStem(result.File)

		if batchExport == "json" || batchExport == "both" {
			if _, err := exporter.ExportJSON(result.Report, base+".json", metadata); err != nil {
				return fmt.Errorf("failed to export JSON report for %s: %w", base, err)
			}
		}
		if batchExport == "html" || batchExport == "both" {
			if _, err := exporter.ExportHTML(result.Report, base+".html", metadata); err != nil {
				return fmt.Errorf("failed to export HTML report for %s: %w", base, err)
			}
		}
	}
	return nil
}

func printBatchSummary(processed, total int, counts map[report.Decision]int, outputDir string) {
	separator := strings.Repeat("=", 70)

	fmt.Printf("\n%s\n", separator)
	fmt.Printf("BATCH ANALYSIS COMPLETE - %d/%d files processed\n", processed, total)
	fmt.Println(separator)
	fmt.Println("\nSummary:")
	fmt.Printf("  ACCEPT:  %d\n", counts[report.DecisionAccept])
	fmt.Printf("  WARNING: %d\n", counts[report.DecisionWarning])
	fmt.Printf("  REJECT:  %d\n", counts[report.DecisionReject])
	fmt.Printf("\nReports saved to: %s\n", outputDir)
	fmt.Println(separator)
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
