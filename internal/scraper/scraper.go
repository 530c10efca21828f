package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/weserbergland/eventsammler/internal/event"
)

const (
	// Browser-like agent; the sites block obvious bots.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	// DefaultDelay is the pause between detail-page fetches.
	DefaultDelay = 300 * time.Millisecond
)

// Options parameterizes one scrape run. Date seeds the listing query for the
// sources that search by day; Limit caps how many records (and detail
// fetches) a run produces, 0 meaning no cap.
type Options struct {
	Date  time.Time
	Limit int
}

// Scraper produces raw records for one source. Elements of the returned
// slice may be error markers; callers filter those before normalization.
type Scraper interface {
	Source() event.Source
	Scrape(ctx context.Context, opts Options) ([]event.RawRecord, error)
}

// Config holds the fetch settings shared by all scrapers.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Delay     time.Duration
	Retries   int
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	// Zero means "use the default"; a negative delay disables the pause.
	if c.Delay == 0 {
		c.Delay = DefaultDelay
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}

func newClient(cfg Config) *resty.Client {
	return resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
}

// fetchDocument GETs a page and parses it with goquery.
func fetchDocument(ctx context.Context, client *resty.Client, pageURL string) (*goquery.Document, error) {
	resp, err := client.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", pageURL, resp.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

// sleepBetween pauses between detail fetches without outliving the context.
func sleepBetween(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

var (
	spaceRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\s*\n\s*`)
	wsRun      = regexp.MustCompile(`\s+`)
)

// cleanWS normalizes scraped text: NBSP to space, runs of spaces collapsed,
// newlines kept but stripped of surrounding whitespace.
func cleanWS(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// flatText collapses all whitespace, newlines included, to single spaces.
func flatText(s string) string {
	return strings.TrimSpace(wsRun.ReplaceAllString(s, " "))
}

// absURL resolves ref against base, returning "" for unusable input.
func absURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// textLines returns the non-empty text nodes under sel in document order,
// each cleaned; the equivalent of splitting get_text("\n") output.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := cleanWS(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return lines
}

// nodeText collects the flattened text content of a raw HTML node.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
		b.WriteString(" ")
	}
	return b.String()
}

// nodeAttr returns an attribute of a raw HTML node, "" when absent.
func nodeAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// errorRecord builds the error-marker record for a failed fetch.
func errorRecord(err error, extra event.RawRecord) event.RawRecord {
	rec := event.RawRecord{"error": err.Error()}
	for k, v := range extra {
		rec[k] = v
	}
	return rec
}
