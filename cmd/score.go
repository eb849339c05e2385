package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/pipeline"
)

var scoreFlags stageFlags

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score enriched prospects against the sender profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, "score", scoreFlags.options(), (*pipeline.Pipeline).Score)
	},
}

func init() {
	scoreFlags.bind(scoreCmd, "person")
	rootCmd.AddCommand(scoreCmd)
}
