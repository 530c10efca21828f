package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/weserbergland/eventsammler/internal/event"
)

// SiwikulturBaseURL is the production site root.
const SiwikulturBaseURL = "https://www.siwikultur.de"

// Siwikultur scrapes the siwikultur.de Termine calendar. The site serves
// ISO-8859-1 and renders one listing page per query date, so a run is a
// single fetch with no detail pages.
type Siwikultur struct {
	client  *resty.Client
	baseURL string
}

// NewSiwikultur creates the siwikultur scraper; baseURL "" means production.
func NewSiwikultur(baseURL string, cfg Config) *Siwikultur {
	if baseURL == "" {
		baseURL = SiwikulturBaseURL
	}
	return &Siwikultur{
		client:  newClient(cfg.withDefaults()),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Siwikultur) Source() event.Source { return event.SourceSiwikultur }

// Scrape fetches the listing for the query date and parses its event blocks.
func (s *Siwikultur) Scrape(ctx context.Context, opts Options) ([]event.RawRecord, error) {
	listURL := fmt.Sprintf("%s/termine/index.php?Da=%s&K=mit", s.baseURL, opts.Date.Format("2006-01-02"))

	resp, err := s.client.R().SetContext(ctx).Get(listURL)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", listURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", listURL, resp.StatusCode())
	}

	// The site declares no charset and serves Latin-1.
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", listURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", listURL, err)
	}

	records := parseSiwikulturListing(doc, listURL)
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records, nil
}

var (
	siwiDateRange = regexp.MustCompile(`(?i)(\d{2}\.\d{2}\.\d{4})\s*bis\s*(\d{2}\.\d{2}\.\d{4})`)
	siwiDate      = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{4}\b`)
	siwiTime      = regexp.MustCompile(`\b\d{1,2}\.\d{2}\s*Uhr\b`)
	siwiHasLetter = regexp.MustCompile(`[A-Za-zÄÖÜäöüß]`)
	pipeSplit     = regexp.MustCompile(`\s*\|\s*`)
	mapsHref      = regexp.MustCompile(`^https://maps\.google\.[^/]+/maps`)
)

// parseSiwikulturListing extracts one raw record per div#va block.
func parseSiwikulturListing(doc *goquery.Document, baseURL string) []event.RawRecord {
	var records []event.RawRecord

	doc.Find("div#va").Each(func(_ int, va *goquery.Selection) {
		eventID, _ := va.Find("vaid").First().Attr("id")
		eventID = strings.TrimSpace(eventID)
		if eventID == "" {
			return
		}

		dt := parseSiwikulturDateTime(pickDatetimeLine(va))

		title := ""
		if el := va.Find("span.fett").First(); el.Length() > 0 {
			title = flatText(el.Text())
		}

		imageFull := ""
		if a := va.Find(".BILDKL a[href], .BILDKR a[href]").First(); a.Length() > 0 {
			href, _ := a.Attr("href")
			imageFull = absURL(baseURL, href)
		}
		imageThumb := ""
		if img := va.Find(".BILDKL img[src], .BILDKR img[src]").First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			imageThumb = absURL(baseURL, src)
		}
		imageCopyright := ""
		if el := va.Find(".BILDKL .copyright, .BILDKR .copyright").First(); el.Length() > 0 {
			imageCopyright = flatText(el.Text())
		}

		locationName, locationURL, mapURL := siwikulturLocation(va, baseURL)
		phone := siwikulturPhone(va)

		organizerName, organizerURL, icalURL, facebookShare := siwikulturMeta(va, eventID, baseURL)

		description := siwikulturDescription(va, eventID)

		records = append(records, event.RawRecord{
			"event_id":     eventID,
			"title":        title,
			"weekday":      dt["weekday"],
			"date":         dt["date"],
			"time":         dt["time"],
			"datetime_raw": dt["raw"],
			"description":  description,
			"location": event.RawRecord{
				"name":    locationName,
				"url":     locationURL,
				"map_url": mapURL,
			},
			"phone": phone,
			"images": event.RawRecord{
				"full":      imageFull,
				"thumb":     imageThumb,
				"copyright": imageCopyright,
			},
			"organizer": event.RawRecord{"name": organizerName, "url": organizerURL},
			"links":     event.RawRecord{"facebook_share": facebookShare, "ical": icalURL},
		})
	})

	return records
}

// pickDatetimeLine selects the most date-like text line of a listing block:
// a line carrying a DD.MM.YYYY date, else one mentioning "Uhr", else the
// first line.
func pickDatetimeLine(va *goquery.Selection) string {
	lines := textLines(va)
	for _, line := range lines {
		if siwiDate.MatchString(line) {
			return line
		}
	}
	for _, line := range lines {
		if strings.Contains(line, "Uhr") {
			return line
		}
	}
	if len(lines) > 0 {
		return lines[0]
	}
	return ""
}

// parseSiwikulturDateTime splits a listing datetime line into weekday, date
// and time fragments. The site mixes three layouts: an explicit date range,
// a "Weekday | Date | Time" pipe layout, and free text with embedded
// DD.MM.YYYY / "H.MM Uhr" fragments.
func parseSiwikulturDateTime(line string) map[string]string {
	line = cleanWS(line)
	out := map[string]string{"weekday": "", "date": "", "time": "", "raw": line}
	if line == "" {
		return out
	}

	if m := siwiDateRange.FindStringSubmatch(line); m != nil {
		out["date"] = m[1] + " bis " + m[2]
		return out
	}

	parts := splitNonEmpty(pipeSplit.Split(line, -1))
	if len(parts) >= 2 {
		if siwiHasLetter.MatchString(parts[0]) && !siwiDate.MatchString(parts[0]) {
			out["weekday"] = parts[0]
			out["date"] = parts[1]
			if len(parts) >= 3 {
				out["time"] = parts[2]
			}
			return out
		}
		if siwiDate.MatchString(parts[0]) {
			out["date"] = parts[0]
			if strings.Contains(parts[1], "Uhr") {
				out["time"] = parts[1]
			}
			return out
		}
	}

	if m := siwiDate.FindString(line); m != "" {
		out["date"] = m
	}
	if m := siwiTime.FindString(line); m != "" {
		out["time"] = cleanWS(m)
	}
	return out
}

// siwikulturLocation finds the Google-Maps anchor of a block; the next
// anchor after it names the venue.
func siwikulturLocation(va *goquery.Selection, baseURL string) (name, locURL, mapURL string) {
	anchors := va.Find("a[href]")
	mapIdx := -1
	anchors.EachWithBreak(func(i int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if mapsHref.MatchString(href) {
			mapIdx = i
			mapURL = href
			return false
		}
		return true
	})
	if mapIdx < 0 || mapIdx+1 >= anchors.Length() {
		return name, locURL, mapURL
	}
	loc := anchors.Eq(mapIdx + 1)
	name = flatText(loc.Text())
	if href, ok := loc.Attr("href"); ok {
		locURL = absURL(baseURL, href)
	}
	return name, locURL, mapURL
}

// siwikulturPhone reads the number printed next to the tel.gif icon.
func siwikulturPhone(va *goquery.Selection) string {
	tel := va.Find(`img[src*="tel.gif"]`).First()
	if tel.Length() == 0 {
		return ""
	}
	b := tel.NextAllFiltered("b").First()
	if b.Length() == 0 {
		b = tel.Parent().Find("b").First()
	}
	return flatText(b.Text())
}

// siwikulturMeta reads organizer, ical and share links from the hidden
// per-event metadata div (its id equals the event id).
func siwikulturMeta(va *goquery.Selection, eventID, baseURL string) (orgName, orgURL, icalURL, facebookShare string) {
	meta := va.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == eventID
	}).First()
	if meta.Length() == 0 {
		return orgName, orgURL, icalURL, facebookShare
	}

	meta.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		switch {
		case strings.Contains(href, "facebook.com/sharer"):
			if facebookShare == "" {
				facebookShare = href
			}
		case strings.HasPrefix(href, "ical.php"):
			if icalURL == "" {
				icalURL = absURL(baseURL, href)
			}
		}
	})

	meta.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		text := flatText(a.Text())
		if text == "" ||
			strings.Contains(href, "facebook.com/sharer") ||
			strings.HasPrefix(href, "ical.php") ||
			strings.HasPrefix(href, "mailto:") {
			return true
		}
		if strings.HasPrefix(href, "http") {
			orgName = text
			orgURL = href
			return false
		}
		return true
	})
	return orgName, orgURL, icalURL, facebookShare
}

// siwikulturDescription collects the free text between the image block (or
// title) and the structured trailing elements (maps anchor, phone icon,
// metadata div).
func siwikulturDescription(va *goquery.Selection, eventID string) string {
	stop := func(n *html.Node) bool {
		switch n.Data {
		case "a":
			return strings.HasPrefix(nodeAttr(n, "href"), "https://maps.google.")
		case "img":
			return strings.Contains(nodeAttr(n, "src"), "tel.gif")
		case "div":
			return nodeAttr(n, "id") == eventID
		}
		return false
	}

	start := va.Find(".BILDKL, .BILDKR").First()
	if start.Length() == 0 {
		start = va.Find("span.fett").First()
	}
	if start.Length() == 0 {
		return ""
	}

	var chunks []string
	for n := start.Nodes[0].NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode && stop(n) {
			break
		}
		if t := cleanWS(nodeText(n)); t != "" {
			chunks = append(chunks, t)
		}
	}
	return cleanWS(strings.Join(chunks, " "))
}

func splitNonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
