package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/sources"
	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/pkg/notion"
)

var (
	sourceAddTag       string
	sourceAddFrequency int
	sourceAddInactive  bool

	sourceListTag    string
	sourceListActive bool

	notionImportTag    string
	notionImportDryRun bool
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the pages discovery mines for people",
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a source page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sources"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		src, err := sources.Add(cmd.Context(), st, sources.Input{
			URL:            args[0],
			ForTag:         sourceAddTag,
			FrequencyHours: sourceAddFrequency,
			Inactive:       sourceAddInactive,
		})
		if errors.Is(err, store.ErrDuplicate) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s already exists\n", color.New(color.FgYellow).Sprint("SKIP"), args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, every %dh)\n", color.New(color.FgGreen).Sprint("ADDED"), src.URL, src.ForTag, src.CheckFrequencyHours)
		return nil
	},
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sources"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListSources(cmd.Context(), store.SourceFilter{ActiveOnly: sourceListActive, ForTag: sourceListTag})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTAG\tACTIVE\tEVERY\tLAST CHECKED\tPEOPLE\tURL")
		for _, s := range list {
			checked := "never"
			if s.LastCheckedAt != nil {
				checked = s.LastCheckedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(tw, "%s\t%s\t%t\t%dh\t%s\t%d\t%s\n",
				s.ID, s.ForTag, s.IsActive, s.CheckFrequencyHours, checked, s.LastPeopleCount, s.URL)
		}
		return tw.Flush()
	},
}

var sourcesImportNotionCmd = &cobra.Command{
	Use:   "import-notion",
	Short: "Import active sources from the Notion sources database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("notion"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := sources.ImportNotion(cmd.Context(), st, notion.NewClient(cfg.Notion.Token), cfg.Notion.SourcesDB, sources.ImportOptions{
			DefaultTag: notionImportTag,
			DryRun:     notionImportDryRun,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pages %d, inserted %d, duplicates %d, skipped %d\n",
			res.Pages, res.Inserted, res.Duplicates, res.Skipped)
		return nil
	},
}

func init() {
	sourcesAddCmd.Flags().StringVar(&sourceAddTag, "for-tag", "", "outreach tag people from this page belong to")
	sourcesAddCmd.Flags().IntVar(&sourceAddFrequency, "frequency-hours", sources.DefaultFrequencyHours, "hours between checks")
	sourcesAddCmd.Flags().BoolVar(&sourceAddInactive, "inactive", false, "add the source disabled")
	_ = sourcesAddCmd.MarkFlagRequired("for-tag")

	sourcesListCmd.Flags().StringVar(&sourceListTag, "for-tag", "", "only sources for this tag")
	sourcesListCmd.Flags().BoolVar(&sourceListActive, "active", false, "only active sources")

	sourcesImportNotionCmd.Flags().StringVar(&notionImportTag, "for-tag", "", "tag for rows without one")
	sourcesImportNotionCmd.Flags().BoolVar(&notionImportDryRun, "dry-run", false, "print what would be imported")

	sourcesCmd.AddCommand(sourcesAddCmd, sourcesListCmd, sourcesImportNotionCmd)
	rootCmd.AddCommand(sourcesCmd)
}
