package fetch

import (
	"mime"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	titleRe   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe    = regexp.MustCompile(`(?i)<meta[^>]+charset=["']?([\w-]+)`)
	anchorRe  = regexp.MustCompile(`(?is)<a\s[^>]*?href\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a>`)
	blockRes  = blockPatterns("script", "style", "noscript", "svg")
	breakRe   = regexp.MustCompile(`(?i)<(br|/p|/div|/li|/h[1-6]|/tr|/section|/article)[^>]*>`)
	tagRe     = regexp.MustCompile(`<[^>]+>`)
	spaceRe   = regexp.MustCompile(`[ \t\r\f\v]+`)
	lineTrim  = regexp.MustCompile(`(?m)^ +| +$`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
)

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

func blockPatterns(tags ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tags))
	for i, tag := range tags {
		out[i] = regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
	}
	return out
}

// decodeBody converts body to UTF-8 using the charset from the Content-Type
// header or a <meta> tag.
func decodeBody(body []byte, contentType string) (string, error) {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = params["charset"]
		}
	}
	if charset == "" {
		head := body
		if len(head) > 4096 {
			head = head[:4096]
		}
		if m := metaRe.FindSubmatch(head); len(m) > 1 {
			charset = string(m[1])
		}
	}
	charset = strings.ToLower(strings.TrimSpace(charset))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		// Unknown labels are read as UTF-8.
		return string(body), nil //nolint:nilerr
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: decode charset %q", charset)
	}
	return string(out), nil
}

func extractTitle(html string) string {
	if m := titleRe.FindStringSubmatch(html); len(m) > 1 {
		return strings.TrimSpace(entities.Replace(tagRe.ReplaceAllString(m[1], "")))
	}
	return ""
}

// annotateLinks keeps LinkedIn and mailto hrefs visible after tag stripping
// by rewriting those anchors as "text [href]".
func annotateLinks(html string) string {
	return anchorRe.ReplaceAllStringFunc(html, func(a string) string {
		m := anchorRe.FindStringSubmatch(a)
		href, inner := m[1], strings.TrimSpace(tagRe.ReplaceAllString(m[2], " "))
		if !strings.HasPrefix(strings.ToLower(href), "mailto:") && !strings.Contains(strings.ToLower(href), "linkedin.com") {
			return m[2]
		}
		if inner == "" {
			return " [" + href + "] "
		}
		return inner + " [" + href + "]"
	})
}

// PlainText strips markup from html, annotating contact links and keeping
// block boundaries as line breaks.
func PlainText(html string) string {
	for _, re := range blockRes {
		html = re.ReplaceAllString(html, "")
	}
	if m := titleRe.FindStringIndex(html); m != nil {
		html = html[:m[0]] + html[m[1]:]
	}
	html = annotateLinks(html)
	html = breakRe.ReplaceAllString(html, "\n")
	html = tagRe.ReplaceAllString(html, " ")
	html = entities.Replace(html)
	html = spaceRe.ReplaceAllString(html, " ")
	html = lineTrim.ReplaceAllString(html, "")
	html = newlineRe.ReplaceAllString(html, "\n\n")
	return strings.TrimSpace(html)
}
