// Package page fetches a webpage and extracts the readable text that gets
// handed to the model as conversation context.
package page

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	fetchTimeout = 20 * time.Second
	maxBodyBytes = 2 << 20
	// Roughly what fits alongside the conversation in a typical context
	// window. Longer pages are cut with a truncation marker.
	maxTextChars = 16000

	userAgent = "pagemate/1.0"
)

// Content is the extracted page, immutable input for one conversation turn.
type Content struct {
	Title   string
	URL     string
	Body    string
	IsVideo bool
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher returns a fetcher with a bounded overall timeout. Unlike the
// completion stream, a page download has no reason to run long.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch downloads rawURL and extracts its title and text. A missing scheme
// defaults to https.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}

	doc := string(body)
	return &Content{
		Title:   ExtractTitle(doc),
		URL:     u.String(),
		Body:    ExtractText(doc),
		IsVideo: isVideoURL(u),
	}, nil
}

var (
	titleRe    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	headRe     = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	scriptRe   = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe    = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptRe = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	blockRe    = regexp.MustCompile(`(?i)</?(p|div|br|li|tr|h[1-6]|section|article|blockquote)[^>]*>`)
	tagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe    = regexp.MustCompile(`[ \t\r\f]+`)
	blankRe    = regexp.MustCompile(`\n\s*\n+`)
)

// ExtractTitle returns the document title, or "" when there is none.
func ExtractTitle(doc string) string {
	m := titleRe.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(collapseSpace(m[1])))
}

// ExtractText strips markup and returns the page's visible text, capped at
// maxTextChars.
func ExtractText(doc string) string {
	doc = headRe.ReplaceAllString(doc, " ")
	doc = scriptRe.ReplaceAllString(doc, " ")
	doc = styleRe.ReplaceAllString(doc, " ")
	doc = noscriptRe.ReplaceAllString(doc, " ")
	doc = blockRe.ReplaceAllString(doc, "\n")
	doc = tagRe.ReplaceAllString(doc, " ")
	doc = html.UnescapeString(doc)
	doc = collapseSpace(doc)
	doc = blankRe.ReplaceAllString(doc, "\n")

	var lines []string
	for _, line := range strings.Split(doc, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return Truncate(strings.Join(lines, "\n"), maxTextChars)
}

// Truncate cuts s at maxLen with a marker so the model knows text is missing.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	// Don't cut in the middle of a rune.
	for len(cut) > 0 {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut + "\n... (truncated)"
}

func collapseSpace(s string) string {
	return spaceRe.ReplaceAllString(s, " ")
}

func isVideoURL(u *url.URL) bool {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "m.youtube.com" || host == "youtu.be"
}
