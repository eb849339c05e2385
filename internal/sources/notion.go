package sources

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/store"
	"github.com/sells-group/warmline/pkg/notion"
)

// Notion database property names.
const (
	PropURL       = "URL"
	PropTag       = "Tag"
	PropActive    = "Active"
	PropFrequency = "Frequency"
)

// ImportOptions controls a Notion import.
type ImportOptions struct {
	// DefaultTag is used for pages without a Tag.
	DefaultTag string
	DryRun     bool
}

// ImportResult tallies a Notion import.
type ImportResult struct {
	Pages      int
	Inserted   int
	Duplicates int
	Skipped    int
}

// ImportNotion copies the active rows of a Notion sources database into the
// store. Rows without a usable URL or tag are skipped with a warning; URLs
// already on file count as duplicates.
func ImportNotion(ctx context.Context, st store.Store, client notion.Client, dbID string, opts ImportOptions) (*ImportResult, error) {
	pages, err := notion.QueryChecked(ctx, client, dbID, PropActive)
	if err != nil {
		return nil, eris.Wrap(err, "sources: import from notion")
	}

	res := &ImportResult{Pages: len(pages)}
	for _, p := range pages {
		in := pageInput(p, opts.DefaultTag)
		src, err := Normalize(in)
		if err != nil {
			res.Skipped++
			zap.L().Warn("sources: skipping notion page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		if opts.DryRun {
			res.Inserted++
			zap.L().Info("sources: would import", zap.String("url", src.URL), zap.String("tag", src.ForTag))
			continue
		}

		err = st.InsertSource(ctx, src)
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, store.ErrDuplicate):
			res.Duplicates++
		default:
			return res, eris.Wrapf(err, "sources: import %s", src.URL)
		}
	}

	zap.L().Info("sources: notion import complete",
		zap.Int("pages", res.Pages),
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped),
		zap.Bool("dry_run", opts.DryRun),
	)
	return res, nil
}

func pageInput(p notionapi.Page, defaultTag string) Input {
	in := Input{
		URL:    notion.Text(p.Properties, PropURL),
		ForTag: notion.Text(p.Properties, PropTag),
	}
	if in.ForTag == "" {
		in.ForTag = defaultTag
	}
	if freq, ok := notion.Number(p.Properties, PropFrequency); ok {
		in.FrequencyHours = int(freq)
	}
	if active, ok := notion.Checkbox(p.Properties, PropActive); ok {
		in.Inactive = !active
	}
	return in
}
