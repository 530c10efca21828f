package identity

import (
	"testing"

	"github.com/weserbergland/eventsammler/internal/event"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		source event.Source
		raw    event.RawRecord
		want   string
	}{
		{
			name:   "siwikultur explicit event id wins",
			source: event.SourceSiwikultur,
			raw: event.RawRecord{
				"event_id": "va12345",
				"links":    map[string]any{"ical": "https://www.siwikultur.de/termine/ical.php?id=12345"},
			},
			want: "va12345",
		},
		{
			name:   "siwikultur falls back to ical link",
			source: event.SourceSiwikultur,
			raw: event.RawRecord{
				"links": map[string]any{"ical": "https://www.siwikultur.de/termine/ical.php?id=12345"},
			},
			want: "https://www.siwikultur.de/termine/ical.php?id=12345",
		},
		{
			name:   "siwikultur weak organizer fallback",
			source: event.SourceSiwikultur,
			raw: event.RawRecord{
				"organizer": map[string]any{"name": "Kulturverein Hameln"},
			},
			want: "Kulturverein Hameln",
		},
		{
			name:   "flohmarkt numeric segment before details",
			source: event.SourceFlohmarkt,
			raw:    event.RawRecord{"detail_url": "https://meine-flohmarkt-termine.de/flohmarkt/8812/details"},
			want:   "8812",
		},
		{
			name:   "flohmarkt URL verbatim when no numeric segment",
			source: event.SourceFlohmarkt,
			raw:    event.RawRecord{"detail_url": "https://meine-flohmarkt-termine.de/sondermarkt"},
			want:   "https://meine-flohmarkt-termine.de/sondermarkt",
		},
		{
			name:   "hamelnr path without host and trailing slash",
			source: event.SourceHamelnr,
			raw:    event.RawRecord{"url": "https://hamelnr.de/event/stadtfest-2024/"},
			want:   "/event/stadtfest-2024",
		},
		{
			name:   "hamelnr nested detail url",
			source: event.SourceHamelnr,
			raw: event.RawRecord{
				"detail": map[string]any{"url": "http://hamelnr.de/events/kino-open-air"},
			},
			want: "/events/kino-open-air",
		},
		{
			name:   "unknown source generic id",
			source: event.Source("other"),
			raw:    event.RawRecord{"id": "abc-1"},
			want:   "abc-1",
		},
		{
			name:   "unknown source generic url fallback",
			source: event.Source("other"),
			raw:    event.RawRecord{"url": "https://example.org/e/1"},
			want:   "https://example.org/e/1",
		},
		{
			name:   "nothing derivable yields empty string",
			source: event.SourceFlohmarkt,
			raw:    event.RawRecord{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.source, tt.raw)
			if got != tt.want {
				t.Errorf("Resolve(%s) = %q, want %q", tt.source, got, tt.want)
			}
			// Identity must be deterministic across repeated calls.
			if again := Resolve(tt.source, tt.raw); again != got {
				t.Errorf("Resolve not deterministic: %q then %q", got, again)
			}
		})
	}
}
