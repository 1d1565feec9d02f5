package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dataqualityagent/data-quality-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the quality dashboard HTTP server",
	Long: `Run an HTTP server exposing the rule catalog and on-demand dataset
analysis. Upload a CSV to /api/v1/analyze to get a quality report, or to
/api/v1/profile for the raw profile. The server runs until interrupted.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	catalog, rulesSource, err := loadCatalog(cfg, "", verbose)
	if err != nil {
		return err
	}

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Starting dashboard server on %s (%d rules from %s)\n",
		cfg.Server.Addr, catalog.Len(), rulesSource)

	return server.New(cfg, catalog, Version).Run(ctx)
}
