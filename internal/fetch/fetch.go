// Package fetch retrieves source pages as plain text for prospect extraction.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/pkg/jina"
)

const (
	// DefaultMaxContentLength caps the text handed to the extraction prompt.
	DefaultMaxContentLength = 15000
	// MinTextLength is the plain-text size below which a page is treated as
	// script-rendered and re-read through the fallback reader.
	MinTextLength = 200

	truncationMarker = "\n[...truncated]"
	maxBodyBytes     = 2 << 20
)

// Page is the fetched, plain-text rendition of a URL.
type Page struct {
	URL       string
	Title     string
	Text      string
	Source    string
	Truncated bool
}

// Fetcher fetches pages over plain HTTP and falls back to the Jina Reader
// when the page is blocked or renders too little text.
type Fetcher struct {
	client    *http.Client
	reader    jina.Client
	maxLength int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for direct fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.client = hc }
}

// WithMaxLength overrides DefaultMaxContentLength.
func WithMaxLength(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxLength = n
		}
	}
}

// New creates a Fetcher. reader may be nil, which disables the fallback.
func New(reader jina.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		reader:    reader,
		maxLength: DefaultMaxContentLength,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the page text for targetURL, capped at the configured length.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	page, localErr := f.local(ctx, targetURL)
	if localErr == nil && utf8.RuneCountInString(page.Text) >= MinTextLength {
		return f.capped(page), nil
	}

	if f.reader == nil {
		if localErr != nil {
			return nil, localErr
		}
		return f.capped(page), nil
	}

	log := zap.L().With(zap.String("url", targetURL))
	if localErr != nil {
		log.Debug("fetch: direct fetch failed, trying reader", zap.Error(localErr))
	} else {
		log.Debug("fetch: thin page, trying reader", zap.Int("text_len", len(page.Text)))
	}

	resp, err := f.reader.Read(ctx, targetURL)
	if err != nil {
		if page != nil {
			log.Warn("fetch: reader failed, using direct text", zap.Error(err))
			return f.capped(page), nil
		}
		return nil, eris.Wrapf(err, "fetch: %s", targetURL)
	}
	return f.capped(&Page{
		URL:    targetURL,
		Title:  resp.Data.Title,
		Text:   strings.TrimSpace(resp.Data.Content),
		Source: "jina",
	}), nil
}

func (f *Fetcher) local(ctx context.Context, targetURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Warmline/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: get %s", targetURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, eris.Errorf("fetch: blocked (%s)", kind)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("fetch: status %d", resp.StatusCode)
	}

	html, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return &Page{
		URL:    targetURL,
		Title:  extractTitle(html),
		Text:   PlainText(html),
		Source: "local_http",
	}, nil
}

func (f *Fetcher) capped(p *Page) *Page {
	p.Text, p.Truncated = Truncate(p.Text, f.maxLength)
	return p
}

// Truncate cuts text to max runes and appends a marker when it was cut.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	runes := []rune(text)
	return string(runes[:max]) + truncationMarker, true
}
