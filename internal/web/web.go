// Package web serves the HTML pages (import, browse, admin) and the JSON
// API on a chi router.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/weserbergland/eventsammler/internal/datetext"
	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/logging"
	"github.com/weserbergland/eventsammler/internal/metrics"
	"github.com/weserbergland/eventsammler/internal/scraper"
	"github.com/weserbergland/eventsammler/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

// PurgeConfirmation is the exact text the admin form requires before the
// store is wiped.
const PurgeConfirmation = "DELETE ALL"

// Server holds the handlers' dependencies.
type Server struct {
	store   *storage.Store
	runner  *ingest.Runner
	metrics *metrics.Metrics
	tmpl    *template.Template
	log     zerolog.Logger
}

// New builds the server. metrics may be nil; /metrics then responds 404.
func New(store *storage.Store, runner *ingest.Runner, m *metrics.Metrics) *Server {
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"fmtDateTime": FormatDateTime,
		"toJSON": func(v any) string {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return ""
			}
			return string(b)
		},
	}).ParseFS(templateFS, "templates/*.html"))

	return &Server{
		store:   store,
		runner:  runner,
		metrics: m,
		tmpl:    tmpl,
		log:     logging.With().Str("component", "web").Logger(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleImportPage)
	r.Post("/import/{source}", s.handleImportForm)
	r.Get("/events", s.handleBrowsePage)
	r.Get("/admin", s.handleAdminPage)
	r.Post("/admin/purge", s.handlePurgeForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.handleAPIEvents)
		r.Get("/stats", s.handleAPIStats)
		r.Post("/import/{source}", s.handleAPIImport)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// FormatDateTime renders a stored ISO timestamp for display: date plus time,
// or the date alone when the time is exactly midnight (the marker for "no
// time known"). Unparseable values pass through untouched.
func FormatDateTime(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02T15:04:05-07:00", iso)
	if err != nil {
		return iso
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04")
}

type importPageData struct {
	Sources []event.Source
	Counts  []storage.SourceCount
	Results []ingest.Result
	Error   string
}

func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	s.renderImport(w, r, importPageData{})
}

func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	results, err := s.runImport(r)
	data := importPageData{Results: results}
	if err != nil {
		data.Error = err.Error()
	}
	s.renderImport(w, r, data)
}

func (s *Server) renderImport(w http.ResponseWriter, r *http.Request, data importPageData) {
	data.Sources = s.runner.Sources()
	counts, err := s.store.CountBySource(r.Context())
	if err != nil && data.Error == "" {
		data.Error = err.Error()
	}
	data.Counts = counts
	s.render(w, "import.html", data)
}

// runImport executes the import named by the {source} URL parameter, "all"
// meaning every configured source. An optional date form/query value
// (YYYY-MM-DD) seeds the listing query.
func (s *Server) runImport(r *http.Request) ([]ingest.Result, error) {
	opts := scraper.Options{}
	if d := r.FormValue("date"); d != "" {
		t, err := time.ParseInLocation("2006-01-02", d, datetext.Berlin)
		if err != nil {
			return nil, err
		}
		opts.Date = t
	}
	if l := r.FormValue("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, fmt.Errorf("limit must not be negative")
		}
		opts.Limit = n
	}

	name := chi.URLParam(r, "source")
	if strings.EqualFold(name, "all") {
		return s.runner.RunAll(r.Context(), opts)
	}
	src, err := event.ParseSource(name)
	if err != nil {
		return nil, err
	}
	res, err := s.runner.Run(r.Context(), src, opts)
	return []ingest.Result{res}, err
}

type browsePageData struct {
	Events  []storage.StoredEvent
	Filter  storage.Filter
	Sources []event.Source
	Error   string
}

func (s *Server) handleBrowsePage(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	rows, err := s.store.Query(r.Context(), f)
	data := browsePageData{Events: rows, Filter: f, Sources: event.Sources}
	if err != nil {
		data.Error = err.Error()
	}
	s.render(w, "browse.html", data)
}

type adminPageData struct {
	Total   int
	Counts  []storage.SourceCount
	Purged  int
	Confirm string
	Error   string
}

func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	s.renderAdmin(w, r, adminPageData{})
}

func (s *Server) handlePurgeForm(w http.ResponseWriter, r *http.Request) {
	data := adminPageData{}
	if r.FormValue("confirm") != PurgeConfirmation {
		data.Error = "Zum Löschen muss exakt \"" + PurgeConfirmation + "\" eingegeben werden."
		w.WriteHeader(http.StatusBadRequest)
	} else {
		n, err := s.store.DeleteAll(r.Context(), true)
		if err != nil {
			data.Error = err.Error()
		} else {
			data.Purged = n
		}
	}
	s.renderAdmin(w, r, data)
}

func (s *Server) renderAdmin(w http.ResponseWriter, r *http.Request, data adminPageData) {
	data.Confirm = PurgeConfirmation
	total, err := s.store.Total(r.Context())
	if err != nil && data.Error == "" {
		data.Error = err.Error()
	}
	counts, err := s.store.CountBySource(r.Context())
	if err != nil && data.Error == "" {
		data.Error = err.Error()
	}
	data.Total = total
	data.Counts = counts
	s.render(w, "admin.html", data)
}

func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Query(r.Context(), filterFromQuery(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []storage.StoredEvent{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": rows, "count": len(rows)})
}

func (s *Server) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.store.Total(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	counts, err := s.store.CountBySource(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if counts == nil {
		counts = []storage.SourceCount{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"total": total, "sources": counts})
}

func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	results, err := s.runImport(r)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func filterFromQuery(r *http.Request) storage.Filter {
	q := r.URL.Query()
	f := storage.Filter{
		Source:    q.Get("source"),
		Search:    q.Get("q"),
		StartFrom: q.Get("from"),
		StartTo:   q.Get("to"),
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("render failed")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
