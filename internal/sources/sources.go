// Package sources curates the web pages that discovery mines for prospects.
package sources

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/warmline/internal/model"
	"github.com/sells-group/warmline/internal/store"
)

// DefaultFrequencyHours is the check interval for sources added without one.
const DefaultFrequencyHours = 24

// ErrInvalidSource is returned for a source without a usable URL or tag.
var ErrInvalidSource = errors.New("sources: invalid source")

// Input describes a source to add.
type Input struct {
	URL            string
	ForTag         string
	FrequencyHours int
	Inactive       bool
}

// Normalize validates in and returns the source it describes.
func Normalize(in Input) (*model.Source, error) {
	raw := strings.TrimSpace(in.URL)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, eris.Wrapf(ErrInvalidSource, "url %q", in.URL)
	}
	tag := strings.ToLower(strings.TrimSpace(in.ForTag))
	if tag == "" {
		return nil, eris.Wrapf(ErrInvalidSource, "no tag for %s", raw)
	}
	freq := in.FrequencyHours
	if freq <= 0 {
		freq = DefaultFrequencyHours
	}
	return &model.Source{URL: raw, ForTag: tag, IsActive: !in.Inactive, CheckFrequencyHours: freq}, nil
}

// Add validates and stores a source. A URL already on file returns an error
// matching store.ErrDuplicate.
func Add(ctx context.Context, st store.Store, in Input) (*model.Source, error) {
	src, err := Normalize(in)
	if err != nil {
		return nil, err
	}
	if err := st.InsertSource(ctx, src); err != nil {
		return nil, eris.Wrapf(err, "sources: add %s", src.URL)
	}
	return src, nil
}
