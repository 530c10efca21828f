package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/metrics"
	"github.com/weserbergland/eventsammler/internal/scraper"
	"github.com/weserbergland/eventsammler/internal/storage"
)

type fakeScraper struct {
	source  event.Source
	records []event.RawRecord
}

func (f *fakeScraper) Source() event.Source { return f.source }

func (f *fakeScraper) Scrape(ctx context.Context, opts scraper.Options) ([]event.RawRecord, error) {
	return f.records, nil
}

func newTestServer(t *testing.T) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "events.sqlite3"))
	if err != nil {
		t.Fatalf("storage.Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	fake := &fakeScraper{
		source: event.SourceFlohmarkt,
		records: []event.RawRecord{{
			"detail_url": "https://meine-flohmarkt-termine.de/flohmarkt/11/details",
			"title":      "Trödelmarkt",
			"ld_json":    event.RawRecord{"startDate": "2024-06-01"},
		}},
	}
	runner := ingest.NewRunner(store, nil, fake)
	return New(store, runner, metrics.New()), store
}

func seed(t *testing.T, store *storage.Store, events ...event.Event) {
	t.Helper()
	if _, err := store.InsertIgnore(context.Background(), events); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
}

func TestPagesRender(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, event.Event{
		Source:        event.SourceHamelnr,
		SourceEventID: "/event/stadtfest/",
		Title:         "Stadtfest Hameln",
		StartDateTime: "2024-06-01T10:00:00+02:00",
		Tags:          []string{"Familie"},
	})
	h := srv.Handler()

	for _, path := range []string{"/", "/events", "/admin", "/healthz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("GET %s = %d, want 200", path, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil))
	body := rec.Body.String()
	if !strings.Contains(body, "Stadtfest Hameln") {
		t.Errorf("browse page missing event:\n%s", body)
	}
	if !strings.Contains(body, "2024-06-01T10:00") {
		t.Errorf("browse page missing formatted start:\n%s", body)
	}
}

func TestImportFormRunsPipeline(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest("POST", "/import/flohmarkt", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /import/flohmarkt = %d, want 200", rec.Code)
	}
	total, err := store.Total(context.Background())
	if err != nil {
		t.Fatalf("Total() error: %v", err)
	}
	if total != 1 {
		t.Errorf("stored %d events, want 1", total)
	}
}

func TestImportUnknownSource(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/import/unbekannt", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestAPIEventsAndStats(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store,
		event.Event{Source: event.SourceFlohmarkt, SourceEventID: "1", Title: "Flohmarkt"},
		event.Event{Source: event.SourceHamelnr, SourceEventID: "/event/x/", Title: "Stadtfest"},
	)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/events?source=flohmarkt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/events = %d", rec.Code)
	}
	var events struct {
		Count  int `json:"count"`
		Events []struct {
			Title string `json:"title"`
		} `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decoding events: %v", err)
	}
	if events.Count != 1 || events.Events[0].Title != "Flohmarkt" {
		t.Errorf("events response = %+v", events)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/stats", nil))
	var stats struct {
		Total   int `json:"total"`
		Sources []struct {
			Source string `json:"source"`
			Count  int    `json:"count"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Total != 2 || len(stats.Sources) != 2 {
		t.Errorf("stats response = %+v", stats)
	}
}

func TestAPIImport(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/api/import/all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/import/all = %d", rec.Code)
	}
	var resp struct {
		Results []struct {
			Source   string `json:"source"`
			Inserted int    `json:"inserted"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Inserted != 1 {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestPurgeRequiresConfirmation(t *testing.T) {
	srv, store := newTestServer(t)
	seed(t, store, event.Event{Source: event.SourceFlohmarkt, SourceEventID: "1"})
	h := srv.Handler()

	form := url.Values{"confirm": {"falsch"}}
	req := httptest.NewRequest("POST", "/admin/purge", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("purge without confirmation = %d, want 400", rec.Code)
	}
	if total, _ := store.Total(context.Background()); total != 1 {
		t.Errorf("events deleted despite missing confirmation")
	}

	form = url.Values{"confirm": {PurgeConfirmation}}
	req = httptest.NewRequest("POST", "/admin/purge", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("purge with confirmation = %d, want 200", rec.Code)
	}
	if total, _ := store.Total(context.Background()); total != 0 {
		t.Errorf("events remain after purge: %d", total)
	}
}

func TestFormatDateTime(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Date and time", "2024-06-01T19:30:00+02:00", "2024-06-01T19:30"},
		{"Midnight means date only", "2024-06-01T00:00:00+02:00", "2024-06-01"},
		{"Empty", "", ""},
		{"Garbage passes through", "morgen", "morgen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDateTime(tt.in); got != tt.want {
				t.Errorf("FormatDateTime(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
