package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/config"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

// Version can be set at build time using ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "dataquality",
	Short: "A CLI agent for assessing the quality of tabular datasets",
	Long: `Data Quality Agent profiles CSV datasets and issues deterministic
ACCEPT, WARNING, or REJECT decisions backed by a catalog of quality rules.

It detects missing values, statistical outliers, impossible negative values,
and empty datasets. The same analysis can optionally be delegated to a local
language model, with the deterministic engine as the fallback.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Data Quality Agent - Use 'dataquality help' for available commands")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is .dataquality.yaml)")
	rootCmd.PersistentFlags().StringP("format", "f", "table", "output format (table, json, markdown, html)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dataquality version %s\n", Version)
		},
	})
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadCatalog resolves the rule catalog from the first of: the explicit
// --rules flag, the configured directory, the built-in defaults. The second
// return value names the source that won.
func loadCatalog(cfg *config.Config, rulesDir string, verbose bool) (*rules.Catalog, string, error) {
	if rulesDir != "" {
		catalog, err := rules.Load(rulesDir)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load rules from %s: %w", rulesDir, err)
		}
		return catalog, rulesDir, nil
	}

	catalog, err := rules.Load(cfg.Rules.Dir)
	if err != nil {
		if errors.Is(err, rules.ErrRulesDirNotFound) {
			if verbose {
				fmt.Printf("Rules directory %s not found, using built-in rules\n", cfg.Rules.Dir)
			}
			return rules.Default(), "built-in", nil
		}
		return nil, "", fmt.Errorf("failed to load rules from %s: %w", cfg.Rules.Dir, err)
	}
	return catalog, cfg.Rules.Dir, nil
}

func writeOutputToFile(content, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), 0644)
}
