package event

import (
	"fmt"
	"strings"
)

// Source identifies which website a record was scraped from and which
// normalizer produced the canonical event.
type Source string

const (
	SourceSiwikultur Source = "siwikultur"
	SourceFlohmarkt  Source = "flohmarkt"
	SourceHamelnr    Source = "hamelnr"
)

// Sources lists all known sources in import order.
var Sources = []Source{SourceSiwikultur, SourceFlohmarkt, SourceHamelnr}

// ParseSource validates a user-supplied source name.
func ParseSource(s string) (Source, error) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Sources {
		if src == known {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// Event is the unified record every normalizer produces. String fields use
// "" for absent; start and end are ISO-8601 strings with an embedded UTC
// offset (Europe/Berlin wall clock). An Event is constructed once per raw
// record and never mutated afterwards.
type Event struct {
	Source          Source    `json:"source"`
	SourceEventID   string    `json:"source_event_id"`
	SourceURL       string    `json:"source_url,omitempty"`
	Title           string    `json:"title,omitempty"`
	StartDateTime   string    `json:"start_datetime,omitempty"`
	EndDateTime     string    `json:"end_datetime,omitempty"`
	Description     string    `json:"description,omitempty"`
	LocationName    string    `json:"location_name,omitempty"`
	LocationAddress string    `json:"location_address,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	Tags            []string  `json:"tags"`
	Metadata        RawRecord `json:"metadata,omitempty"`
}

// Key returns the deduplication key.
func (e *Event) Key() string {
	return string(e.Source) + "|" + e.SourceEventID
}

// Validate reports whether the record satisfies the storage contract. An
// empty source_event_id is allowed through normalization (degraded identity
// fallback) but flagged here so callers can log the data-quality risk.
func (e *Event) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("event has no source")
	}
	if e.SourceEventID == "" {
		return fmt.Errorf("event from %s has empty source_event_id", e.Source)
	}
	return nil
}
