package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/config"
	"github.com/dataqualityagent/data-quality-agent/internal/engine"
	"github.com/dataqualityagent/data-quality-agent/internal/llm"
	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/provenance"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Analyze a CSV dataset and decide ACCEPT, WARNING, or REJECT",
	Long: `Analyze a CSV dataset against the quality rule catalog. The profiler
gathers per-column facts, the decision engine applies the thresholds, and the
resulting report explains every issue that was found.

With --llm the verdict is asked from the configured local model instead. When
the model is unreachable or returns an unusable answer, the deterministic
engine decides.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var (
	checkRulesDir      string
	checkUseLLM        bool
	checkModel         string
	checkExport        string
	checkExportDir     string
	checkFailOnReject  bool
	checkShowReasoning bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkRulesDir, "rules", "", "rules directory (default from config)")
	checkCmd.Flags().BoolVar(&checkUseLLM, "llm", false, "ask the configured model for the verdict")
	checkCmd.Flags().StringVar(&checkModel, "model", "", "model to use with --llm (default from config)")
	checkCmd.Flags().StringVar(&checkExport, "export", "", "export report files (json, html, both)")
	checkCmd.Flags().StringVar(&checkExportDir, "export-dir", "reports", "directory for exported reports")
	checkCmd.Flags().BoolVar(&checkFailOnReject, "fail-on-reject", false, "exit with code 1 when the dataset is rejected")
	checkCmd.Flags().BoolVar(&checkShowReasoning, "show-reasoning", false, "print the engine's step-by-step reasoning")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := validateExportFormat(checkExport); err != nil {
		return err
	}

	dataPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", args[0], err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	catalog, rulesDir, err := loadCatalog(cfg, checkRulesDir, verbose)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Printf("Analyzing dataset: %s\n", dataPath)
		fmt.Printf("Loaded %d quality rules from %s\n", catalog.Len(), rulesDir)
		if prov, err := provenance.Collect(dataPath); err == nil && prov != nil {
			fmt.Printf("Dataset provenance: %s\n", prov.Describe())
		}
	}

	analyzer := newDatasetAnalyzer(cfg, catalog, checkUseLLM, checkModel)

	result, reasoning, err := analyzer.analyzePath(cmd.Context(), dataPath)
	if err != nil {
		return fmt.Errorf("failed to analyze %s: %w", args[0], err)
	}

	if err := outputResults(cmd, result); err != nil {
		return err
	}

	if checkShowReasoning {
		printReasoning(reasoning)
	}

	if checkExport != "" {
		if err := exportCheckReports(result, dataPath, rulesDir, analyzer); err != nil {
			return err
		}
	}

	if checkFailOnReject && result.Decision == report.DecisionReject {
		os.Exit(1)
	}
	return nil
}

// datasetAnalyzer bundles everything needed to turn a CSV path into a
// quality report. It is shared by the check and batch commands.
type datasetAnalyzer struct {
	cfg     *config.Config
	catalog *rules.Catalog
	useLLM  bool
	model   string
}

func newDatasetAnalyzer(cfg *config.Config, catalog *rules.Catalog, useLLM bool, model string) *datasetAnalyzer {
	if model == "" {
		model = cfg.LLM.Model
	}
	return &datasetAnalyzer{cfg: cfg, catalog: catalog, useLLM: useLLM, model: model}
}

func (a *datasetAnalyzer) analyzePath(ctx context.Context, path string) (*report.QualityReport, []string, error) {
	profile, err := profiler.New(path).GenerateProfile()
	if err != nil {
		return nil, nil, err
	}

	fallback := engine.New(a.cfg, a.catalog)
	if !a.useLLM {
		result, err := fallback.Analyze(profile)
		if err != nil {
			return nil, nil, err
		}
		return result, fallback.Reasoning(), nil
	}

	timeout := time.Duration(a.cfg.LLM.TimeoutSeconds) * time.Second
	client := llm.NewClient(a.cfg.LLM.Host, timeout, a.cfg.LLM.MaxRetries)
	embedder := llm.NewEmbeddingClient(a.cfg.LLM.Host, a.cfg.LLM.EmbeddingModel, timeout)

	// Retrieval is best effort; the verdict prompt works without an index.
	index, err := rules.BuildIndex(ctx, embedder, a.catalog)
	if err != nil {
		index = nil
	}

	strategy := engine.NewLLMStrategy(client, a.model, index, embedder, fallback)
	result, err := strategy.Analyze(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	return result, strategy.Reasoning(), nil
}

// modelLabel names the model for report metadata. Rule-based runs carry a
// fixed placeholder so consumers can tell the two modes apart.
func (a *datasetAnalyzer) modelLabel() string {
	if a.useLLM {
		return a.model
	}
	return "N/A (rule-based)"
}

func (a *datasetAnalyzer) agentVersion() string {
	if a.useLLM {
		return fmt.Sprintf("%s (LLM-powered)", Version)
	}
	return fmt.Sprintf("%s (rule-based)", Version)
}

func outputResults(cmd *cobra.Command, result *report.QualityReport) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	formatter := report.GetFormatter(formatFlag)

	output, err := formatter.Format(result)
	if err != nil {
		return fmt.Errorf("failed to format report: %w", err)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		if err := writeOutputToFile(output, outputPath); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			fmt.Printf("Report written to: %s\n", outputPath)
		}
		return nil
	}

	fmt.Print(output)
	return nil
}

func printReasoning(reasoning []string) {
	if len(reasoning) == 0 {
		return
	}
	fmt.Println("\nReasoning:")
	for _, step := range reasoning {
		fmt.Printf("  %s\n", step)
	}
}

func exportCheckReports(result *report.QualityReport, dataPath, rulesDir string, analyzer *datasetAnalyzer) error {
	exporter, err := report.NewExporter(checkExportDir)
	if err != nil {
		return err
	}

	metadata := map[string]any{
		"generated_at":    time.Now().Format(time.RFC3339),
		"data_file":       dataPath,
		"rules_directory": rulesDir,
		"agent_version":   analyzer.agentVersion(),
		"model":           analyzer.modelLabel(),
	}
	if prov, err := provenance.Collect(dataPath); err == nil {
		for key, value := range prov.Metadata() {
			metadata[key] = value
		}
	}

	base := csvStem(dataPath)

	if checkExport == "json" || checkExport == "both" {
		path, err := exporter.ExportJSON(result, base+".json", metadata)
		if err != nil {
			return fmt.Errorf("failed to export JSON report: %w", err)
		}
		fmt.Printf("Exported: %s\n", path)
	}
	if checkExport == "html" || checkExport == "both" {
		path, err := exporter.ExportHTML(result, base+".html", metadata)
		if err != nil {
			return fmt.Errorf("failed to export HTML report: %w", err)
		}
		fmt.Printf("Exported: %s\n", path)
	}
	return nil
}

func validateExportFormat(format string) error {
	switch format {
	case "", "json", "html", "both":
		return nil
	default:
		return fmt.Errorf("invalid export format %q (expected json, html, or both)", format)
	}
}

// csvStem strips the directory and extension from a dataset path, giving
// the base name exported report files are derived from.
func csvStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
