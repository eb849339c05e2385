package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/pipeline"
)

// stageFlags are the flags every stage command accepts.
type stageFlags struct {
	personID string
	sourceID string
	forTag   string
	dryRun   bool
	force    bool
}

func (f *stageFlags) bind(cmd *cobra.Command, entity string) {
	if entity == "source" {
		cmd.Flags().StringVar(&f.sourceID, "source-id", "", "process a single source by id")
	} else {
		cmd.Flags().StringVar(&f.personID, "person-id", "", "process a single prospect by id")
	}
	cmd.Flags().StringVar(&f.forTag, "for-tag", "", "restrict to one outreach tag")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "compute and print results without writing")
	cmd.Flags().BoolVar(&f.force, "force", false, "reprocess entities that would otherwise be skipped")
}

func (f *stageFlags) options() pipeline.RunOptions {
	return pipeline.RunOptions{
		PersonID: f.personID,
		SourceID: f.sourceID,
		ForTag:   f.forTag,
		DryRun:   f.dryRun,
		Force:    f.force,
	}
}

type stageFunc func(p *pipeline.Pipeline, ctx context.Context, opts pipeline.RunOptions) (*pipeline.Summary, error)

// runStage builds the pipeline for mode, runs fn with per-entity output and
// prints the summary. The returned error is non-nil unless every entity
// succeeded or was skipped.
func runStage(cmd *cobra.Command, mode string, opts pipeline.RunOptions, fn stageFunc) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	env, err := initPipeline(ctx, mode, pipeline.WithReporter(resultPrinter(cmd.OutOrStdout())))
	if err != nil {
		return err
	}
	defer env.Close()

	summary, err := fn(env.Pipeline, ctx, opts)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}
	return summary.Error()
}
