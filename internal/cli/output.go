package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/storage"
	"github.com/weserbergland/eventsammler/internal/web"
)

// OutputFormat specifies the output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeResults reports the per-source outcome of an import run.
func writeResults(w io.Writer, results []ingest.Result, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]any{"results": results})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSCRAPED\tERRORS\tNEW\tIGNORED\tDURATION")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Source, r.Scraped, r.Errors, r.Inserted, r.Ignored, r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// writeEvents lists stored events.
func writeEvents(w io.Writer, events []storage.StoredEvent, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]any{"events": events, "count": len(events)})
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "START\tTITLE\tLOCATION\tSOURCE")
	for _, e := range events {
		start := web.FormatDateTime(e.StartDateTime)
		if start == "" {
			start = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", start, oneLine(e.Title), oneLine(e.LocationName), e.Source)
	}
	return tw.Flush()
}

// writeStats reports the stored totals.
func writeStats(w io.Writer, total int, counts []storage.SourceCount, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]any{"total": total, "sources": counts})
	}

	fmt.Fprintf(w, "Total events: %d\n", total)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tCOUNT")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%d\n", c.Source, c.Count)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
