package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/pipeline"
)

var discoverFlags stageFlags

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Extract people from due sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, "discover", discoverFlags.options(), (*pipeline.Pipeline).Discover)
	},
}

func init() {
	discoverFlags.bind(discoverCmd, "source")
	rootCmd.AddCommand(discoverCmd)
}
