package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/weserbergland/eventsammler/internal/event"
)

// HamelnrBaseURL is the production site root.
const HamelnrBaseURL = "https://hamelnr.de"

// Hamelnr scrapes the hamelnr.de event listing and its Elementor-built
// detail pages. Detail pages label their facts with free-form icon-box
// headings ("Datum", "Uhrzeit", "Adresse", ...), so the scraper collects
// them verbatim as a key/value map and leaves interpretation downstream.
type Hamelnr struct {
	client  *resty.Client
	baseURL string
	delay   func(ctx context.Context)
}

// NewHamelnr creates the hamelnr scraper; baseURL "" means production.
func NewHamelnr(baseURL string, cfg Config) *Hamelnr {
	cfg = cfg.withDefaults()
	if baseURL == "" {
		baseURL = HamelnrBaseURL
	}
	return &Hamelnr{
		client:  newClient(cfg),
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   func(ctx context.Context) { sleepBetween(ctx, cfg.Delay) },
	}
}

func (h *Hamelnr) Source() event.Source { return event.SourceHamelnr }

// Scrape reads the listing page and follows each event's detail page. A
// failed detail fetch yields an error-marker record that keeps the listing
// context, so the event still reaches the store in degraded form later runs
// can improve on.
func (h *Hamelnr) Scrape(ctx context.Context, opts Options) ([]event.RawRecord, error) {
	listURL := fmt.Sprintf("%s/events/", h.baseURL)

	doc, err := fetchDocument(ctx, h.client, listURL)
	if err != nil {
		return nil, err
	}

	items := parseHamelnrListing(doc, h.baseURL)
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	records := make([]event.RawRecord, 0, len(items))
	for i, item := range items {
		if i > 0 {
			h.delay(ctx)
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		pageURL := item.String("url")
		detailDoc, err := fetchDocument(ctx, h.client, pageURL)
		if err != nil {
			records = append(records, errorRecord(err, item))
			continue
		}
		item["detail"] = parseHamelnrDetail(detailDoc, pageURL)
		records = append(records, item)
	}
	return records, nil
}

// parseHamelnrListing extracts one item per listing card. Cards are the
// Elementor loop items; the event link is the first anchor whose path lives
// under /event/ or /events/.
func parseHamelnrListing(doc *goquery.Document, baseURL string) []event.RawRecord {
	var items []event.RawRecord
	seen := map[string]bool{}

	doc.Find(`div[class*="loop-item"], article[class*="loop-item"]`).Each(func(_ int, card *goquery.Selection) {
		pageURL := ""
		card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			abs := absURL(baseURL, href)
			if isHamelnrEventURL(abs) {
				pageURL = abs
				return false
			}
			return true
		})
		if pageURL == "" || seen[pageURL] {
			return
		}
		seen[pageURL] = true

		item := event.RawRecord{
			"url":  pageURL,
			"list": event.RawRecord{},
		}
		list := item["list"].(event.RawRecord)

		if t := card.Find("h2, h3, h4").First(); t.Length() > 0 {
			list["title"] = flatText(t.Text())
		}
		if d := card.Find(`[class*="date"]`).First(); d.Length() > 0 {
			list["date"] = flatText(d.Text())
		}
		if img := card.Find("img[src]").First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			list["image"] = absURL(baseURL, src)
		}

		var badges []string
		card.Find(`[class*="badge"], [class*="taxonomy"] a, [rel="tag"]`).Each(func(_ int, b *goquery.Selection) {
			if t := flatText(b.Text()); t != "" && !containsString(badges, t) {
				badges = append(badges, t)
			}
		})
		item["badges"] = badges

		items = append(items, item)
	})
	return items
}

func isHamelnrEventURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	p := u.Path
	return strings.HasPrefix(p, "/event/") ||
		(strings.HasPrefix(p, "/events/") && strings.TrimRight(p, "/") != "/events")
}

// parseHamelnrDetail extracts a detail page: the h1 title, the hero's
// background image, the labelled icon-box fields, and the longest plausible
// description paragraph.
func parseHamelnrDetail(doc *goquery.Document, pageURL string) event.RawRecord {
	detail := event.RawRecord{"url": pageURL}

	h1 := doc.Find("h1").First()
	if h1.Length() > 0 {
		detail["title"] = flatText(h1.Text())
	}

	// Scope to the section around the title when there is one; Elementor
	// pages repeat widgets in headers and footers.
	scope := doc.Selection
	if h1.Length() > 0 {
		if parent := h1.Closest("div.elementor, div[data-elementor-type]"); parent.Length() > 0 {
			scope = parent
		}
	}

	if el := scope.Find("[data-dce-background-image-url]").First(); el.Length() > 0 {
		cover, _ := el.Attr("data-dce-background-image-url")
		detail["cover_image"] = absURL(pageURL, cover)
	}

	fields := event.RawRecord{}
	scope.Find(".elementor-widget-icon-box").Each(func(_ int, box *goquery.Selection) {
		label := flatText(box.Find(".elementor-icon-box-title").Text())
		if label == "" {
			return
		}
		var values []string
		box.Find(".elementor-icon-box-description").Each(func(_ int, d *goquery.Selection) {
			for _, line := range textLines(d) {
				if line != "" {
					values = append(values, line)
				}
			}
		})
		if len(values) == 0 {
			return
		}
		// Schedule widgets list one row per day; keep them on one line.
		if _, dup := fields[label]; !dup {
			fields[label] = strings.Join(values, " | ")
		}
	})
	if len(fields) > 0 {
		detail["fields"] = fields
	}

	if desc := hamelnrDescription(scope); desc != "" {
		detail["description"] = desc
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		if cls, ok := body.Attr("class"); ok {
			switch {
			case strings.Contains(cls, "single-event"):
				detail["page_type"] = "single-event"
			case strings.Contains(cls, "page"):
				detail["page_type"] = "page"
			}
		}
	}

	return detail
}

// hamelnrDescription picks the first text-editor widget or paragraph with
// enough substance to be the event description.
func hamelnrDescription(scope *goquery.Selection) string {
	best := ""
	scope.Find(".elementor-widget-text-editor, .elementor-widget-theme-post-content, article p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := cleanWS(s.Text())
		if len([]rune(t)) >= 50 {
			best = t
			return false
		}
		return true
	})
	return best
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
