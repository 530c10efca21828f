// Package ingest runs the import pipeline: scrape a source, drop the error
// markers, normalize the survivors, and write them to the store. One broken
// page degrades a run's numbers, never aborts it.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/weserbergland/eventsammler/internal/datetext"
	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/logging"
	"github.com/weserbergland/eventsammler/internal/metrics"
	"github.com/weserbergland/eventsammler/internal/normalize"
	"github.com/weserbergland/eventsammler/internal/scraper"
	"github.com/weserbergland/eventsammler/internal/storage"
)

// Result summarizes one import run for one source.
type Result struct {
	Source   event.Source  `json:"source"`
	Scraped  int           `json:"scraped"`
	Errors   int           `json:"errors"`
	Inserted int           `json:"inserted"`
	Ignored  int           `json:"ignored"`
	Duration time.Duration `json:"duration"`
}

// Runner drives imports against a fixed set of scrapers.
type Runner struct {
	store    *storage.Store
	metrics  *metrics.Metrics
	scrapers map[event.Source]scraper.Scraper
	log      zerolog.Logger
}

// NewRunner wires the pipeline. m may be nil when no metrics are wanted.
func NewRunner(store *storage.Store, m *metrics.Metrics, scrapers ...scraper.Scraper) *Runner {
	bySource := make(map[event.Source]scraper.Scraper, len(scrapers))
	for _, s := range scrapers {
		bySource[s.Source()] = s
	}
	return &Runner{
		store:    store,
		metrics:  m,
		scrapers: bySource,
		log:      logging.With().Str("component", "ingest").Logger(),
	}
}

// Sources lists the sources this runner can import, sorted.
func (r *Runner) Sources() []event.Source {
	out := make([]event.Source, 0, len(r.scrapers))
	for src := range r.scrapers {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Run imports one source. A zero opts.Date means today in local event time.
func (r *Runner) Run(ctx context.Context, src event.Source, opts scraper.Options) (Result, error) {
	res := Result{Source: src}

	s, ok := r.scrapers[src]
	if !ok {
		return res, fmt.Errorf("no scraper configured for source %q", src)
	}
	norm, ok := normalize.ForSource(src)
	if !ok {
		return res, fmt.Errorf("no normalizer for source %q", src)
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now().In(datetext.Berlin)
	}

	start := time.Now()
	raws, err := s.Scrape(ctx, opts)
	if err != nil {
		return res, fmt.Errorf("scraping %s: %w", src, err)
	}
	res.Scraped = len(raws)

	var events []event.Event
	for _, raw := range raws {
		if raw.IsError() {
			res.Errors++
			r.log.Warn().
				Str("source", string(src)).
				Str("error", raw.ErrorText()).
				Msg("record skipped")
			continue
		}
		events = append(events, norm(raw))
	}

	ins, err := r.store.InsertIgnore(ctx, events)
	if err != nil {
		return res, fmt.Errorf("storing %s events: %w", src, err)
	}
	res.Inserted = ins.Inserted
	res.Ignored = ins.Ignored
	res.Duration = time.Since(start)

	if m := r.metrics; m != nil {
		label := string(src)
		m.EventsScraped.WithLabelValues(label).Add(float64(res.Scraped))
		m.ScrapeErrors.WithLabelValues(label).Add(float64(res.Errors))
		m.EventsInserted.WithLabelValues(label).Add(float64(res.Inserted))
		m.EventsIgnored.WithLabelValues(label).Add(float64(res.Ignored))
		m.ImportDuration.WithLabelValues(label).Observe(res.Duration.Seconds())
	}

	r.log.Info().
		Str("source", string(src)).
		Int("scraped", res.Scraped).
		Int("errors", res.Errors).
		Int("inserted", res.Inserted).
		Int("ignored", res.Ignored).
		Dur("duration", res.Duration).
		Msg("import finished")

	return res, nil
}

// RunAll imports every configured source in order. A failing source is
// reported in its result's error and does not stop the remaining sources.
func (r *Runner) RunAll(ctx context.Context, opts scraper.Options) ([]Result, error) {
	var results []Result
	var firstErr error
	for _, src := range r.Sources() {
		res, err := r.Run(ctx, src, opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			r.log.Error().Str("source", string(src)).Err(err).Msg("import failed")
		}
		results = append(results, res)
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, firstErr
}
