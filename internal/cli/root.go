// Package cli implements the vsr command line: the HTTP service and one-shot
// searches over a directory.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vsr",
	Short: "Vector-space retrieval engine",
	Long: `vsr indexes plain-text and HTML documents and answers boolean, ranked
(tf-idf cosine) and phrase queries over them.

Example usage:
  vsr serve --config vsr.yaml              # Run the HTTP service
  vsr search ./docs -q "lazy dog"          # Rank the files of a directory
  vsr search ./docs -q "lazy dog" -m phrase --context`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg = config.Default()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Results go to stdout, so command logs go to stderr.
		logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults and VSR_* environment variables)")
}

// GetConfig returns the configuration loaded for the running command.
func GetConfig() *config.Config {
	return cfg
}
