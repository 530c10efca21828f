package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/storage"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteResultsText(t *testing.T) {
	var buf bytes.Buffer
	results := []ingest.Result{
		{Source: event.SourceFlohmarkt, Scraped: 5, Errors: 1, Inserted: 3, Ignored: 1, Duration: 1200 * time.Millisecond},
	}
	if err := writeResults(&buf, results, FormatText); err != nil {
		t.Fatalf("writeResults() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SOURCE", "flohmarkt", "5", "3", "1.2s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResultsJSON(t *testing.T) {
	var buf bytes.Buffer
	results := []ingest.Result{{Source: event.SourceHamelnr, Inserted: 2}}
	if err := writeResults(&buf, results, FormatJSON); err != nil {
		t.Fatalf("writeResults() error: %v", err)
	}
	var decoded struct {
		Results []struct {
			Source   string `json:"source"`
			Inserted int    `json:"inserted"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Source != "hamelnr" || decoded.Results[0].Inserted != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteEventsText(t *testing.T) {
	var buf bytes.Buffer
	events := []storage.StoredEvent{
		{Event: event.Event{Title: "Stadtfest", LocationName: "Hameln", Source: event.SourceHamelnr, StartDateTime: "2024-06-01T10:00:00+02:00"}},
		{Event: event.Event{Title: "Ohne Datum", Source: event.SourceSiwikultur}},
	}
	if err := writeEvents(&buf, events, FormatText); err != nil {
		t.Fatalf("writeEvents() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "2024-06-01T10:00") {
		t.Errorf("output missing formatted start:\n%s", out)
	}
	if !strings.Contains(out, "Ohne Datum") {
		t.Errorf("output missing dateless event:\n%s", out)
	}

	buf.Reset()
	if err := writeEvents(&buf, nil, FormatText); err != nil {
		t.Fatalf("writeEvents() error: %v", err)
	}
	if !strings.Contains(buf.String(), "No events found.") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestSortEvents(t *testing.T) {
	mk := func(id int64, title, start string, src event.Source) storage.StoredEvent {
		return storage.StoredEvent{ID: id, Event: event.Event{Title: title, StartDateTime: start, Source: src}}
	}
	events := []storage.StoredEvent{
		mk(1, "Zebra", "2024-07-01T10:00:00+02:00", event.SourceHamelnr),
		mk(2, "Anton", "", event.SourceSiwikultur),
		mk(3, "Mitte", "2024-06-01T10:00:00+02:00", event.SourceFlohmarkt),
	}

	tests := []struct {
		name  string
		order SortOrder
		want  []int64
	}{
		{"By date, dateless last", SortByDate, []int64{3, 1, 2}},
		{"By title", SortByTitle, []int64{2, 3, 1}},
		{"By source", SortBySource, []int64{3, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]storage.StoredEvent, len(events))
			copy(got, events)
			sortEvents(got, tt.order)
			for i, want := range tt.want {
				if got[i].ID != want {
					t.Errorf("position %d = id %d, want %d", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestParseSourceArg(t *testing.T) {
	if _, all, err := parseSourceArg("all"); err != nil || !all {
		t.Errorf("parseSourceArg(all) = all=%v err=%v", all, err)
	}
	if src, all, err := parseSourceArg("flohmarkt"); err != nil || all || src != event.SourceFlohmarkt {
		t.Errorf("parseSourceArg(flohmarkt) = %v %v %v", src, all, err)
	}
	if _, _, err := parseSourceArg("unbekannt"); err == nil {
		t.Error("parseSourceArg(unbekannt) did not fail")
	}
}
