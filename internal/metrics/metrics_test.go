package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCountersAppearOnHandler(t *testing.T) {
	m := New()
	m.EventsInserted.WithLabelValues("flohmarkt").Add(3)
	m.ScrapeErrors.WithLabelValues("hamelnr").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `eventsammler_events_inserted_total{source="flohmarkt"} 3`) {
		t.Errorf("inserted counter missing:\n%s", body)
	}
	if !strings.Contains(body, `eventsammler_scrape_errors_total{source="hamelnr"} 1`) {
		t.Errorf("error counter missing:\n%s", body)
	}
}

func TestSeparateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.EventsScraped.WithLabelValues("siwikultur").Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), `source="siwikultur"`) {
		t.Error("registries are shared between instances")
	}
}
