package normalize

import (
	"sort"
	"strings"

	"github.com/weserbergland/eventsammler/internal/datetext"
	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/identity"
)

// Func converts one raw record into a canonical event.
type Func func(raw event.RawRecord) event.Event

// ForSource returns the normalizer for a source.
func ForSource(src event.Source) (Func, bool) {
	switch src {
	case event.SourceSiwikultur:
		return Siwikultur, true
	case event.SourceFlohmarkt:
		return Flohmarkt, true
	case event.SourceHamelnr:
		return Hamelnr, true
	}
	return nil, false
}

// Siwikultur normalizes a siwikultur.de listing record. The site exposes a
// combined date-or-raw-datetime text and an independent time field; there is
// no address and no tag data.
func Siwikultur(raw event.RawRecord) event.Event {
	url := raw.String("organizer", "url")
	if url == "" {
		url = raw.String("links", "ical")
	}

	dateText := raw.String("date")
	if dateText == "" {
		dateText = raw.String("datetime_raw")
	}
	dStart, dEnd := datetext.ParseNumericDateRange(dateText)
	clock := datetext.ParseClock(raw.String("time"))

	end := ""
	if dEnd != nil {
		// End date only; the site never states an end time.
		end = datetext.CombineLocal(dEnd, nil)
	}

	img := raw.String("images", "full")
	if img == "" {
		img = raw.String("images", "thumb")
	}

	return event.Event{
		Source:        event.SourceSiwikultur,
		SourceEventID: identity.Resolve(event.SourceSiwikultur, raw),
		SourceURL:     url,
		Title:         raw.String("title"),
		StartDateTime: datetext.CombineLocal(dStart, clock),
		EndDateTime:   end,
		Description:   raw.String("description"),
		LocationName:  raw.String("location", "name"),
		ImageURL:      img,
		Tags:          []string{},
		Metadata:      raw,
	}
}

// Flohmarkt normalizes a meine-flohmarkt-termine.de record. Structured
// JSON-LD dates are preferred; the time of day lives in a separate free-text
// range and is merged onto the structured date. Without structured dates the
// raw datetime attribute is loosely parsed.
func Flohmarkt(raw event.RawRecord) event.Event {
	url := raw.String("detail_url")
	if url == "" {
		url = raw.String("ld_json", "url")
	}

	title := raw.String("title")
	if title == "" {
		title = raw.String("title_list")
	}

	var startDate, endDate *datetext.Date
	if ld := raw.Map("ld_json"); ld != nil {
		startDate = datetext.LooseParseDate(ld.String("startDate"))
		endDate = datetext.LooseParseDate(ld.String("endDate"))
	}
	clockStart, clockEnd := datetext.ParseClockRangeDash(raw.String("time_text"))

	var start string
	if startDate != nil {
		start = datetext.CombineLocal(startDate, clockStart)
	} else {
		txt := raw.String("datetime_raw")
		if txt == "" {
			txt = raw.String("datetime_list")
		}
		start = datetext.LooseParse(txt)
	}

	end := ""
	if startDate != nil && clockEnd != nil {
		d := endDate
		if d == nil {
			d = startDate
		}
		end = datetext.CombineLocal(d, clockEnd)
	}

	var lines []string
	if pc, city := raw.String("postalCode"), raw.String("addressLocality"); pc != "" || city != "" {
		lines = append(lines, strings.TrimSpace(pc+" "+city))
	}
	if street := raw.String("streetAddress"); street != "" {
		lines = append(lines, street)
	}
	address := strings.Join(lines, "\n")
	if address == "" {
		address = raw.String("address_block_list")
	}

	tags := []string{}
	if c := raw.String("category"); c != "" {
		tags = append(tags, c)
	}
	if c := raw.String("category_list"); c != "" && !containsString(tags, c) {
		tags = append(tags, c)
	}

	description := raw.String("gut_zu_wissen")
	if description == "" {
		description = raw.String("description")
	}

	return event.Event{
		Source:          event.SourceFlohmarkt,
		SourceEventID:   identity.Resolve(event.SourceFlohmarkt, raw),
		SourceURL:       url,
		Title:           title,
		StartDateTime:   start,
		EndDateTime:     end,
		Description:     description,
		LocationName:    raw.String("place_name"),
		LocationAddress: address,
		Tags:            tags,
		Metadata:        raw,
	}
}

// Hamelnr normalizes a hamelnr.de record. The listing page carries a long
// German date; the detail page exposes loosely-labelled key/value fields
// which override it. Field keys are bucketed by case-insensitive substring
// ("datum", "uhr"/"zeit", "adresse", "ort"), first match per bucket wins.
func Hamelnr(raw event.RawRecord) event.Event {
	detail := raw.Map("detail")

	url := detail.String("url")
	if url == "" {
		url = raw.String("url")
	}

	title := detail.String("title")
	if title == "" {
		title = raw.String("list", "title")
	}
	description := detail.String("description")

	d := datetext.ParseLongGermanDate(raw.String("list", "date"))
	clockStart, clockEnd := datetext.ParseClockRangeBis(description)

	datum, uhr, address, ort := bucketFields(detail.Map("fields"))

	if datum != "" {
		if ds, _ := datetext.ParseNumericDateRange(datum); ds != nil {
			d = ds
		}
	}
	if uhr != "" {
		if s, e := datetext.ParseClockRangeBis(uhr); s != nil || e != nil {
			clockStart, clockEnd = s, e
		} else if single := datetext.ParseClock(uhr); single != nil {
			clockStart = single
		}
	}

	end := ""
	if d != nil && clockEnd != nil {
		end = datetext.CombineLocal(d, clockEnd)
	}

	img := detail.String("cover_image")
	if img == "" {
		img = raw.String("list", "image")
	}

	tags := raw.Strings("badges")
	if tags == nil {
		tags = []string{}
	}

	return event.Event{
		Source:          event.SourceHamelnr,
		SourceEventID:   identity.Resolve(event.SourceHamelnr, event.RawRecord{"url": url}),
		SourceURL:       url,
		Title:           title,
		StartDateTime:   datetext.CombineLocal(d, clockStart),
		EndDateTime:     end,
		Description:     description,
		LocationName:    ort,
		LocationAddress: address,
		ImageURL:        img,
		Tags:            tags,
		Metadata:        raw,
	}
}

// bucketFields sorts the loosely-labelled detail fields of a hamelnr page
// into the four buckets the normalizer understands. Keys are matched
// case-insensitively by substring; the first matching key (in sorted key
// order, since map iteration is unspecified) fills a bucket, later matches
// are ignored. "Öffnungszeiten" lands in the time bucket via "zeit".
func bucketFields(fields event.RawRecord) (datum, uhr, address, ort string) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := fields.String(k)
		if v == "" {
			continue
		}
		low := strings.ToLower(k)
		switch {
		case strings.Contains(low, "datum"):
			if datum == "" {
				datum = v
			}
		case strings.Contains(low, "uhr"), strings.Contains(low, "zeit"):
			if uhr == "" {
				uhr = v
			}
		case strings.Contains(low, "adresse"):
			if address == "" {
				address = v
			}
		case strings.Contains(low, "ort"):
			if ort == "" {
				ort = v
			}
		}
	}
	return datum, uhr, address, ort
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
