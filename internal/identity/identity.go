// Package identity derives the stable per-source identifier used as one half
// of the (source, source_event_id) deduplication key. Resolution is a pure
// function of the raw record: the same scraped page always yields the same
// identity, so re-importing a listing never creates a duplicate row.
package identity

import (
	"regexp"

	"github.com/weserbergland/eventsammler/internal/event"
)

var (
	// flohmarkt detail URLs look like .../flohmarkt/8812/details.
	flohmarktID = regexp.MustCompile(`/(\d+)/details`)
	// hamelnr identity is the URL path without scheme, host and trailing
	// slash; unique as long as the site does not reuse paths.
	urlPath = regexp.MustCompile(`^https?://[^/]+(/.+?)/?$`)
)

// Resolve returns the identity string for a raw record. It never fails: when
// no identifier is derivable it falls through to weaker fields and ultimately
// to "". Callers treat suspicious identities (empty, shared organizer names)
// as a data-quality risk, not an error.
func Resolve(src event.Source, raw event.RawRecord) string {
	switch src {
	case event.SourceSiwikultur:
		// Organizer name is a weak last resort: two events by the same
		// organizer collide. Kept as-is pending evidence it happens.
		if id := raw.String("event_id"); id != "" {
			return id
		}
		if ical := raw.String("links", "ical"); ical != "" {
			return ical
		}
		return raw.String("organizer", "name")

	case event.SourceFlohmarkt:
		url := raw.String("detail_url")
		if m := flohmarktID.FindStringSubmatch(url); m != nil {
			return m[1]
		}
		return url

	case event.SourceHamelnr:
		url := raw.String("url")
		if url == "" {
			url = raw.String("detail", "url")
		}
		if m := urlPath.FindStringSubmatch(url); m != nil {
			return m[1]
		}
		return url
	}

	// Future sources: generic fields, strongest first.
	if id := raw.String("id"); id != "" {
		return id
	}
	if url := raw.String("url"); url != "" {
		return url
	}
	return raw.String("detail_url")
}
