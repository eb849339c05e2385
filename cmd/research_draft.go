package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/pipeline"
)

var (
	researchDraftFlags stageFlags
	researchDraftTone  string
)

var researchDraftCmd = &cobra.Command{
	Use:   "research-draft",
	Short: "Research one prospect on the web, then draft their outreach",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := researchDraftFlags.options()
		opts.Tone = model.Tone(researchDraftTone)
		return runStage(cmd, "research-draft", opts, (*pipeline.Pipeline).ResearchDraft)
	},
}

func init() {
	researchDraftFlags.bind(researchDraftCmd, "person")
	researchDraftCmd.Flags().StringVar(&researchDraftTone, "tone", string(model.ToneWarm), "email tone: warm or professional")
	_ = researchDraftCmd.MarkFlagRequired("person-id")
	rootCmd.AddCommand(researchDraftCmd)
}
