package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/pipeline"
)

var (
	draftFlags    stageFlags
	draftMinScore int
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft outreach for scored prospects above the threshold",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := draftFlags.options()
		if cmd.Flags().Changed("min-score") {
			if draftMinScore < 0 || draftMinScore > 100 {
				return eris.Errorf("draft: --min-score must be between 0 and 100, got %d", draftMinScore)
			}
			opts.MinScore = &draftMinScore
		}
		return runStage(cmd, "draft", opts, (*pipeline.Pipeline).Draft)
	},
}

func init() {
	draftFlags.bind(draftCmd, "person")
	draftCmd.Flags().IntVar(&draftMinScore, "min-score", 40, "minimum priority score to draft (default from pipeline.min_score)")
	rootCmd.AddCommand(draftCmd)
}
