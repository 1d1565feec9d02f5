package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/config"
	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config file and rules directory",
	Long: `Create a .dataquality.yaml config file with the default thresholds and
a rules directory seeded with the built-in rule catalog. Existing files are
left alone unless --force is given.`,
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing files")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = ".dataquality.yaml"
	}

	cfg := config.DefaultConfig()

	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("Created config file: %s\n", configPath)

	rulesFile := filepath.Join(cfg.Rules.Dir, "data_quality_rules.md")
	if _, err := os.Stat(rulesFile); err == nil && !initForce {
		fmt.Printf("Rules file already exists: %s\n", rulesFile)
		return nil
	}

	if err := os.MkdirAll(cfg.Rules.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}
	if err := os.WriteFile(rulesFile, []byte(rules.DefaultRulesMarkdown), 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	fmt.Printf("Created rules file: %s\n", rulesFile)

	return nil
}
