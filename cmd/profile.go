package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/profiler"
	"github.com/dataqualityagent/data-quality-agent/internal/report"
)

var profileCmd = &cobra.Command{
	Use:   "profile [file]",
	Short: "Profile a CSV dataset without judging it",
	Long: `Profile a CSV dataset and print the collected facts: column types,
missing value counts, descriptive statistics, outliers, and negative values.
No decision is made; use 'check' for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runProfile,
}

func init() {
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	dataPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", args[0], err)
	}

	profile, err := profiler.New(dataPath).GenerateProfile()
	if err != nil {
		return fmt.Errorf("failed to profile %s: %w", args[0], err)
	}

	formatFlag, _ := cmd.Flags().GetString("format")

	var output string
	switch formatFlag {
	case "json":
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal profile to JSON: %w", err)
		}
		output = string(data) + "\n"
	default:
		output = renderProfileText(profile)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath != "" {
		if err := writeOutputToFile(output, outputPath); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	fmt.Print(output)
	return nil
}

func renderProfileText(profile *profiler.DatasetProfile) string {
	var sb strings.Builder

	sb.WriteString("Dataset Profile\n")
	sb.WriteString(fmt.Sprintf("File: %s\n", profile.FilePath))
	sb.WriteString(fmt.Sprintf("Rows: %s | Columns: %d\n\n",
		report.FormatNumber(profile.BasicStats.RowCount), profile.BasicStats.ColumnCount))

	for _, column := range profile.BasicStats.Columns {
		colType := profile.ColumnTypes[column]
		sb.WriteString(fmt.Sprintf("%s (%s)\n", column, colType.SemanticType))

		if missing, ok := profile.MissingValues[column]; ok && missing.MissingCount > 0 {
			sb.WriteString(fmt.Sprintf("  Missing: %d (%.2f%%)\n",
				missing.MissingCount, missing.MissingPercentage))
		}
		if stats, ok := profile.DescriptiveStats[column]; ok {
			sb.WriteString(fmt.Sprintf("  Min: %v | Max: %v | Mean: %v | Median: %v\n",
				stats.Min, stats.Max, stats.Mean, stats.Median))
		}
		if outliers, ok := profile.Outliers[column]; ok && outliers.OutlierCount > 0 {
			sb.WriteString(fmt.Sprintf("  Outliers: %d (%.2f%%) outside [%v, %v]\n",
				outliers.OutlierCount, outliers.OutlierPercentage,
				outliers.LowerBound, outliers.UpperBound))
		}
		if negatives, ok := profile.NegativeValues[column]; ok {
			sb.WriteString(fmt.Sprintf("  Negatives: %d (%.2f%%)\n",
				negatives.NegativeCount, negatives.NegativePercentage))
		}
	}

	return sb.String()
}
