// Command pagecopy detects editable slots in landing page templates and
// generates their copy from a product brief.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pagecopy/internal/gateway/config"
	"pagecopy/internal/logger"
)

var (
	verbose bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "pagecopy",
	Short: "Generate landing page copy from a brief",
	Long: `pagecopy turns a product brief into copy for every editable slot of an
HTML template.

Available subcommands:
  detect   - mark the editable slots of a template
  generate - write copy for a template from a brief
  serve    - run the API server`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the environment and builds the logger for a command.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	applyVerbosity(cfg, verbose)
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, lg, nil
}

// applyVerbosity keeps the CLI quiet unless -v is given, which turns on
// debug logging and prompt tracing whatever LOG_MODE says.
func applyVerbosity(cfg *config.Config, verbose bool) {
	if !verbose {
		cfg.LogMode = "production"
		return
	}
	cfg.LogMode = "development"
	cfg.LLM.LogPrompts = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
