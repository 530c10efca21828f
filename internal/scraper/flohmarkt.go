package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/weserbergland/eventsammler/internal/event"
)

// FlohmarktBaseURL is the production site root.
const FlohmarktBaseURL = "https://meine-flohmarkt-termine.de"

// Flohmarkt scrapes meine-flohmarkt-termine.de: a day-search listing page
// followed by one detail page per hit. Detail pages embed a JSON-LD Event
// node which carries the structured dates and address.
type Flohmarkt struct {
	client  *resty.Client
	baseURL string
	delay   func(ctx context.Context)
}

// NewFlohmarkt creates the flohmarkt scraper; baseURL "" means production.
func NewFlohmarkt(baseURL string, cfg Config) *Flohmarkt {
	cfg = cfg.withDefaults()
	if baseURL == "" {
		baseURL = FlohmarktBaseURL
	}
	return &Flohmarkt{
		client:  newClient(cfg),
		baseURL: strings.TrimRight(baseURL, "/"),
		delay:   func(ctx context.Context) { sleepBetween(ctx, cfg.Delay) },
	}
}

func (f *Flohmarkt) Source() event.Source { return event.SourceFlohmarkt }

// Scrape searches for the query date and follows each hit's detail page.
// A failed detail fetch yields an error-marker record carrying the listing
// context, so one broken page never aborts the run.
func (f *Flohmarkt) Scrape(ctx context.Context, opts Options) ([]event.RawRecord, error) {
	searchURL := fmt.Sprintf("%s/suche?query=%s&country=de", f.baseURL, opts.Date.Format("02.01.2006"))

	doc, err := fetchDocument(ctx, f.client, searchURL)
	if err != nil {
		return nil, err
	}

	rows := parseFlohmarktListing(doc, f.baseURL)
	if opts.Limit > 0 && len(rows) > opts.Limit {
		rows = rows[:opts.Limit]
	}

	records := make([]event.RawRecord, 0, len(rows))
	for i, row := range rows {
		if i > 0 {
			f.delay(ctx)
		}
		if err := ctx.Err(); err != nil {
			return records, err
		}

		detailURL := row.String("detail_url")
		detailDoc, err := fetchDocument(ctx, f.client, detailURL)
		if err != nil {
			records = append(records, errorRecord(err, row))
			continue
		}
		rec := parseFlohmarktDetail(detailDoc)
		for k, v := range row {
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseFlohmarktListing extracts the per-hit listing context from a search
// results page. Each hit is a div.row carrying its detail link in data-link.
func parseFlohmarktListing(doc *goquery.Document, baseURL string) []event.RawRecord {
	var rows []event.RawRecord
	seen := map[string]bool{}

	doc.Find("div.row[data-link]").Each(func(_ int, row *goquery.Selection) {
		link, _ := row.Attr("data-link")
		detailURL := absURL(baseURL, strings.TrimSpace(link))
		if detailURL == "" || seen[detailURL] {
			return
		}
		seen[detailURL] = true

		rec := event.RawRecord{"detail_url": detailURL}

		if h := row.Find("h2, h3, h4, strong").First(); h.Length() > 0 {
			rec["title_list"] = flatText(h.Text())
		}
		if tm := row.Find("time").First(); tm.Length() > 0 {
			if dt, ok := tm.Attr("datetime"); ok {
				rec["datetime_list"] = strings.TrimSpace(dt)
			} else {
				rec["datetime_list"] = flatText(tm.Text())
			}
		}
		if addr := row.Find("address").First(); addr.Length() > 0 {
			rec["address_block_list"] = cleanWS(addrText(addr))
		}
		if cat := row.Find(`a[href*="/kategorie/"], .badge, .label`).First(); cat.Length() > 0 {
			rec["category_list"] = flatText(cat.Text())
		}
		rows = append(rows, rec)
	})
	return rows
}

// addrText renders an address block with its line structure preserved.
func addrText(sel *goquery.Selection) string {
	return strings.Join(textLines(sel), "\n")
}

var lastUpdatedRe = regexp.MustCompile(`(?i)zuletzt\s+aktualisiert[:\s]*([0-9.: ]+)`)

// parseFlohmarktDetail extracts a detail page into a raw record: the visible
// header fields, the flattened JSON-LD Event node, and the free-text
// "Gut zu wissen" section.
func parseFlohmarktDetail(doc *goquery.Document) event.RawRecord {
	rec := event.RawRecord{}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		rec["title"] = flatText(h1.Text())
	}
	if cat := doc.Find(`a[href*="/kategorie/"]`).First(); cat.Length() > 0 {
		rec["category"] = flatText(cat.Text())
	}
	if tm := doc.Find("time").First(); tm.Length() > 0 {
		if dt, ok := tm.Attr("datetime"); ok {
			rec["datetime_raw"] = strings.TrimSpace(dt)
		}
		rec["time_text"] = flatText(tm.Text())
	}

	if ld := findLDEvent(doc); ld != nil {
		rec["ld_json"] = ld
		flattenLDEvent(ld, rec)
	}

	if gzw := sectionAfterHeading(doc, "Gut zu wissen"); gzw != "" {
		rec["gut_zu_wissen"] = gzw
	}

	doc.Find("p, small, footer").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := lastUpdatedRe.FindStringSubmatch(s.Text()); m != nil {
			rec["last_updated"] = strings.TrimSpace(m[1])
			return false
		}
		return true
	})

	return rec
}

// findLDEvent scans the page's ld+json scripts for an Event node, looking at
// the top level, inside @graph, and inside plain arrays.
func findLDEvent(doc *goquery.Document) event.RawRecord {
	var found event.RawRecord
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var node any
		if err := json.Unmarshal([]byte(s.Text()), &node); err != nil {
			return true
		}
		if ev := ldEventNode(node); ev != nil {
			found = ev
			return false
		}
		return true
	})
	return found
}

func ldEventNode(node any) event.RawRecord {
	switch v := node.(type) {
	case map[string]any:
		if t, _ := v["@type"].(string); strings.EqualFold(t, "Event") {
			return event.RawRecord(v)
		}
		if graph, ok := v["@graph"]; ok {
			return ldEventNode(graph)
		}
	case []any:
		for _, item := range v {
			if ev := ldEventNode(item); ev != nil {
				return ev
			}
		}
	}
	return nil
}

// flattenLDEvent copies the JSON-LD fields the normalizer reads onto the
// record's top level.
func flattenLDEvent(ld event.RawRecord, rec event.RawRecord) {
	if v := ld.String("description"); v != "" {
		rec["description"] = v
	}
	if v := ld.String("eventStatus"); v != "" {
		rec["event_status"] = v
	}

	place := ld.Map("location")
	if v := place.String("name"); v != "" {
		rec["place_name"] = v
	}
	addr := place.Map("address")
	if v := addr.String("streetAddress"); v != "" {
		rec["streetAddress"] = v
	}
	if v := addr.String("postalCode"); v != "" {
		rec["postalCode"] = v
	}
	if v := addr.String("addressLocality"); v != "" {
		rec["addressLocality"] = v
	}
	if v := addr.String("addressCountry"); v != "" {
		rec["addressCountry"] = v
	}

	if v := ld.Map("organizer").String("name"); v != "" {
		rec["organizer_name"] = v
	}
}

// sectionAfterHeading returns the text of the paragraphs following the first
// heading whose text contains title, stopping at the next heading.
func sectionAfterHeading(doc *goquery.Document, title string) string {
	var out []string
	doc.Find("h2, h3, h4").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(flatText(h.Text())), strings.ToLower(title)) {
			return true
		}
		h.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if s.Is("h1, h2, h3, h4") {
				return false
			}
			if t := cleanWS(s.Text()); t != "" {
				out = append(out, t)
			}
			return true
		})
		return false
	})
	return strings.Join(out, "\n")
}
