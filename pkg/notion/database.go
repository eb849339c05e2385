package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches every page matching query, following pagination cursors.
// The next page is requested while the current one is appended.
func QueryAll(ctx context.Context, c Client, dbID string, query *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	page := func(cursor notionapi.Cursor) *notionapi.DatabaseQueryRequest {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if query != nil {
			req.Filter = query.Filter
			req.Sorts = query.Sorts
			req.PageSize = query.PageSize
		}
		return req
	}

	type result struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}
	var (
		all  []notionapi.Page
		next <-chan result
	)
	for {
		var r result
		if next != nil {
			r = <-next
		} else {
			r.resp, r.err = c.QueryDatabase(ctx, dbID, page(""))
		}
		if r.err != nil {
			return nil, eris.Wrap(r.err, "notion: query all")
		}

		all = append(all, r.resp.Results...)
		if !r.resp.HasMore {
			return all, nil
		}

		ch := make(chan result, 1)
		next = ch
		req := page(r.resp.NextCursor)
		go func() {
			resp, err := c.QueryDatabase(ctx, dbID, req)
			ch <- result{resp: resp, err: err}
		}()
	}
}

// QueryChecked returns every page whose checkbox property is ticked.
func QueryChecked(ctx context.Context, c Client, dbID, property string) ([]notionapi.Page, error) {
	query := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			Checkbox: &notionapi.CheckboxFilterCondition{Equals: true},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, query)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query pages with %s checked", property)
	}
	return pages, nil
}
