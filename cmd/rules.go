package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the quality rule catalog",
	Long: `Inspect the quality rules the decision engine works from. Rules are
loaded from the configured rules directory; when it does not exist, the
built-in catalog is used.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rules in the catalog",
	RunE:  runRulesList,
}

var rulesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one rule in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesShow,
}

var rulesSearchCmd = &cobra.Command{
	Use:   "search [keyword]",
	Short: "Search rules by keyword",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesSearch,
}

var rulesDir string

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesSearchCmd)

	rulesCmd.PersistentFlags().StringVar(&rulesDir, "rules", "", "rules directory (default from config)")
}

func catalogForRulesCmd(cmd *cobra.Command) (*rules.Catalog, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	catalog, _, err := loadCatalog(cfg, rulesDir, verbose)
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	catalog, err := catalogForRulesCmd(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("Quality Rules (%d):\n", catalog.Len())
	for _, summary := range catalog.Summary() {
		fmt.Printf("  %s  %s\n", summary.ID, summary.Title)
	}
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	catalog, err := catalogForRulesCmd(cmd)
	if err != nil {
		return err
	}

	id := strings.ToUpper(args[0])
	rule, ok := catalog.RuleByID(id)
	if !ok {
		return fmt.Errorf("rule %s not found", id)
	}

	fmt.Println(rule.Document())
	return nil
}

func runRulesSearch(cmd *cobra.Command, args []string) error {
	catalog, err := catalogForRulesCmd(cmd)
	if err != nil {
		return err
	}

	matches := catalog.Search(args[0])
	if len(matches) == 0 {
		fmt.Printf("No rules matching %q\n", args[0])
		return nil
	}

	fmt.Printf("Rules matching %q (%d):\n", args[0], len(matches))
	for _, rule := range matches {
		fmt.Printf("  %s  %s\n", rule.ID, rule.Title)
	}
	return nil
}
