package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/weserbergland/eventsammler/internal/event"
)

// DefaultLimit caps browse queries when the caller passes no limit.
const DefaultLimit = 500

// Store wraps the events database.
type Store struct {
	db *sql.DB
}

// InsertResult reports how a batch fared against the uniqueness constraint.
type InsertResult struct {
	Inserted int `json:"inserted"`
	Ignored  int `json:"ignored"`
}

// SourceCount is one row of the per-source statistics.
type SourceCount struct {
	Source event.Source `json:"source"`
	Count  int          `json:"count"`
}

// StoredEvent is a canonical event as read back from the table, with the
// storage bookkeeping attached.
type StoredEvent struct {
	ID int64 `json:"id"`
	event.Event
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Filter narrows a browse query. Zero values mean "no constraint"; Source
// "ALL" (any case) also means all sources. Start bounds are ISO strings and
// deliberately keep rows whose start_datetime is NULL, so events with an
// unparseable date stay visible.
type Filter struct {
	Source    string
	Search    string
	StartFrom string
	StartTo   string
	Limit     int
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    source_event_id TEXT NOT NULL,
    source_url TEXT,

    title TEXT,
    start_datetime TEXT,
    end_datetime TEXT,
    description TEXT,

    location_name TEXT,
    location_address TEXT,
    image_url TEXT,
    tags_json TEXT,
    metadata_json TEXT,

    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,

    UNIQUE(source, source_event_id)
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_datetime);
CREATE INDEX IF NOT EXISTS idx_events_source ON events(source);
`

// Open opens (creating if necessary) the events database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertIgnore writes a batch of canonical events in one transaction.
// Rows violating the (source, source_event_id) constraint are counted as
// ignored, not updated.
func (s *Store) InsertIgnore(ctx context.Context, events []event.Event) (InsertResult, error) {
	var res InsertResult

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (
			source, source_event_id, source_url,
			title, start_datetime, end_datetime, description,
			location_name, location_address, image_url,
			tags_json, metadata_json,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return res, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)

	for i := range events {
		e := &events[i]

		tags := e.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return res, fmt.Errorf("encoding tags for %s: %w", e.Key(), err)
		}
		meta := e.Metadata
		if meta == nil {
			meta = event.RawRecord{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return res, fmt.Errorf("encoding metadata for %s: %w", e.Key(), err)
		}

		r, err := stmt.ExecContext(ctx,
			string(e.Source), e.SourceEventID, nullable(e.SourceURL),
			nullable(e.Title), nullable(e.StartDateTime), nullable(e.EndDateTime), nullable(e.Description),
			nullable(e.LocationName), nullable(e.LocationAddress), nullable(e.ImageURL),
			string(tagsJSON), string(metaJSON),
			now, now,
		)
		if err != nil {
			return res, fmt.Errorf("inserting %s: %w", e.Key(), err)
		}
		affected, err := r.RowsAffected()
		if err != nil {
			return res, fmt.Errorf("counting affected rows: %w", err)
		}
		if affected == 1 {
			res.Inserted++
		} else {
			res.Ignored++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing batch: %w", err)
	}
	return res, nil
}

// Query returns stored events matching the filter, soonest start first with
// date-less events sorted last, newest insertion breaking ties.
func (s *Store) Query(ctx context.Context, f Filter) ([]StoredEvent, error) {
	var where []string
	var args []any

	if f.Source != "" && !strings.EqualFold(f.Source, "ALL") {
		where = append(where, "source = ?")
		args = append(args, f.Source)
	}
	if f.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.StartFrom != "" {
		where = append(where, "(start_datetime IS NULL OR start_datetime >= ?)")
		args = append(args, f.StartFrom)
	}
	if f.StartTo != "" {
		where = append(where, "(start_datetime IS NULL OR start_datetime <= ?)")
		args = append(args, f.StartTo)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)

	query := `
		SELECT id, source, source_event_id, source_url,
		       title, start_datetime, end_datetime, description,
		       location_name, location_address, image_url,
		       tags_json, metadata_json, created_at, updated_at
		FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += `
		ORDER BY
		  CASE WHEN start_datetime IS NULL THEN 1 ELSE 0 END,
		  start_datetime ASC,
		  id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			se       StoredEvent
			source   string
			url      sql.NullString
			title    sql.NullString
			start    sql.NullString
			end      sql.NullString
			desc     sql.NullString
			locName  sql.NullString
			locAddr  sql.NullString
			img      sql.NullString
			tagsJSON sql.NullString
			metaJSON sql.NullString
		)
		if err := rows.Scan(&se.ID, &source, &se.SourceEventID, &url,
			&title, &start, &end, &desc,
			&locName, &locAddr, &img,
			&tagsJSON, &metaJSON, &se.CreatedAt, &se.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		se.Source = event.Source(source)
		se.SourceURL = url.String
		se.Title = title.String
		se.StartDateTime = start.String
		se.EndDateTime = end.String
		se.Description = desc.String
		se.LocationName = locName.String
		se.LocationAddress = locAddr.String
		se.ImageURL = img.String
		se.Tags = []string{}
		if tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &se.Tags); err != nil {
				return nil, fmt.Errorf("decoding tags for row %d: %w", se.ID, err)
			}
		}
		if metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &se.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for row %d: %w", se.ID, err)
			}
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

// CountBySource returns per-source row counts, largest first.
func (s *Store) CountBySource(ctx context.Context) ([]SourceCount, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source, COUNT(*) FROM events GROUP BY source ORDER BY COUNT(*) DESC")
	if err != nil {
		return nil, fmt.Errorf("counting by source: %w", err)
	}
	defer rows.Close()

	var out []SourceCount
	for rows.Next() {
		var sc SourceCount
		var source string
		if err := rows.Scan(&source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scanning count row: %w", err)
		}
		sc.Source = event.Source(source)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Total returns the number of stored events.
func (s *Store) Total(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

// DeleteAll removes every event, resets the autoincrement counter, and
// optionally vacuums. Returns the number of rows deleted.
func (s *Store) DeleteAll(ctx context.Context, vacuum bool) (int, error) {
	before, err := s.Total(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return 0, fmt.Errorf("deleting events: %w", err)
	}
	// sqlite_sequence only exists once an AUTOINCREMENT insert happened.
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sqlite_sequence WHERE name='events'"); err != nil && !strings.Contains(err.Error(), "no such table") {
		return 0, fmt.Errorf("resetting sequence: %w", err)
	}

	if vacuum {
		if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
			return 0, fmt.Errorf("vacuuming: %w", err)
		}
	}
	return before, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
