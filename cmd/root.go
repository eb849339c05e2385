package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "warmline",
	Short: "Prospect discovery and outreach drafting pipeline",
	Long: "Discovers people on curated web pages, enriches them from a people-data API and your own " +
		"contact export, scores fit with Claude, and drafts personalized outreach emails.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
