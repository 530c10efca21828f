package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/weserbergland/eventsammler/internal/event"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "events.sqlite3"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleEvent(id string) event.Event {
	return event.Event{
		Source:        event.SourceFlohmarkt,
		SourceEventID: id,
		SourceURL:     "https://meine-flohmarkt-termine.de/flohmarkt/" + id + "/details",
		Title:         "Flohmarkt " + id,
		StartDateTime: "2024-06-01T14:00:00+02:00",
		Description:   "Trödel und mehr",
		Tags:          []string{"Flohmarkt"},
		Metadata:      event.RawRecord{"detail_url": "https://meine-flohmarkt-termine.de/flohmarkt/" + id + "/details"},
	}
}

func TestInsertIgnoreDeduplicates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.InsertIgnore(ctx, []event.Event{sampleEvent("1"), sampleEvent("2")})
	if err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}
	if first.Inserted != 2 || first.Ignored != 0 {
		t.Errorf("first batch = %+v, want inserted=2 ignored=0", first)
	}

	// Same identity again plus one new event: the duplicate is ignored.
	second, err := store.InsertIgnore(ctx, []event.Event{sampleEvent("1"), sampleEvent("3")})
	if err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}
	if second.Inserted != 1 || second.Ignored != 1 {
		t.Errorf("second batch = %+v, want inserted=1 ignored=1", second)
	}

	total, err := store.Total(ctx)
	if err != nil {
		t.Fatalf("Total() error: %v", err)
	}
	if total != 3 {
		t.Errorf("Total() = %d, want 3", total)
	}
}

func TestInsertIgnoreFirstSeenWins(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	original := sampleEvent("1")
	original.Title = "Erste Fassung"
	if _, err := store.InsertIgnore(ctx, []event.Event{original}); err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}

	corrected := sampleEvent("1")
	corrected.Title = "Korrigierte Fassung"
	if _, err := store.InsertIgnore(ctx, []event.Event{corrected}); err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}

	rows, err := store.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Query() returned %d rows, want 1", len(rows))
	}
	if rows[0].Title != "Erste Fassung" {
		t.Errorf("Title = %q, want the first-seen value", rows[0].Title)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	e := sampleEvent("7")
	e.LocationAddress = "31785 Hameln\nOsterstraße 2"
	e.Tags = []string{"Flohmarkt", "Trödelmarkt"}
	if _, err := store.InsertIgnore(ctx, []event.Event{e}); err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}

	rows, err := store.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Query() returned %d rows, want 1", len(rows))
	}
	got := rows[0]
	if got.LocationAddress != e.LocationAddress {
		t.Errorf("LocationAddress = %q, want multi-line preserved", got.LocationAddress)
	}
	if !reflect.DeepEqual(got.Tags, e.Tags) {
		t.Errorf("Tags = %v, want %v", got.Tags, e.Tags)
	}
	if got.Metadata.String("detail_url") == "" {
		t.Error("Metadata lost in round trip")
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("bookkeeping timestamps missing")
	}
}

func TestQueryFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	batch := []event.Event{
		{Source: event.SourceSiwikultur, SourceEventID: "a", Title: "Jazzkonzert", StartDateTime: "2024-05-01T19:00:00+02:00"},
		{Source: event.SourceFlohmarkt, SourceEventID: "b", Title: "Flohmarkt", StartDateTime: "2024-06-15T09:00:00+02:00"},
		{Source: event.SourceHamelnr, SourceEventID: "c", Title: "Stadtfest", Description: "mit Jazz am Abend"},
	}
	if _, err := store.InsertIgnore(ctx, batch); err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}

	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{
			name:    "No filter, dateless rows last",
			filter:  Filter{},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "Source filter",
			filter:  Filter{Source: "flohmarkt"},
			wantIDs: []string{"b"},
		},
		{
			name:    "Source ALL means no filter",
			filter:  Filter{Source: "ALL"},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "Search matches title or description",
			filter:  Filter{Search: "Jazz"},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "Start lower bound keeps dateless rows",
			filter:  Filter{StartFrom: "2024-06-01T00:00"},
			wantIDs: []string{"b", "c"},
		},
		{
			name:    "Start upper bound keeps dateless rows",
			filter:  Filter{StartTo: "2024-06-01T23:59"},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "Limit",
			filter:  Filter{Limit: 1},
			wantIDs: []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			var ids []string
			for _, r := range rows {
				ids = append(ids, r.SourceEventID)
			}
			want := tt.wantIDs
			if len(ids) != len(want) {
				t.Fatalf("Query() ids = %v, want %v", ids, want)
			}
			for i := range want {
				if ids[i] != want[i] {
					t.Errorf("Query() ids = %v, want %v", ids, want)
					break
				}
			}
		})
	}
}

func TestCountBySourceAndDeleteAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	batch := []event.Event{
		{Source: event.SourceFlohmarkt, SourceEventID: "1"},
		{Source: event.SourceFlohmarkt, SourceEventID: "2"},
		{Source: event.SourceHamelnr, SourceEventID: "/event/x"},
	}
	if _, err := store.InsertIgnore(ctx, batch); err != nil {
		t.Fatalf("InsertIgnore() error: %v", err)
	}

	counts, err := store.CountBySource(ctx)
	if err != nil {
		t.Fatalf("CountBySource() error: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("CountBySource() = %v, want 2 sources", counts)
	}
	if counts[0].Source != event.SourceFlohmarkt || counts[0].Count != 2 {
		t.Errorf("largest source = %+v, want flohmarkt with 2", counts[0])
	}

	deleted, err := store.DeleteAll(ctx, true)
	if err != nil {
		t.Fatalf("DeleteAll() error: %v", err)
	}
	if deleted != 3 {
		t.Errorf("DeleteAll() = %d, want 3", deleted)
	}

	total, err := store.Total(ctx)
	if err != nil {
		t.Fatalf("Total() error: %v", err)
	}
	if total != 0 {
		t.Errorf("Total() after purge = %d, want 0", total)
	}
}
