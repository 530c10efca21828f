// Package event defines the canonical event record all source normalizers
// converge to, the source enum, and the raw record tree scrapers produce.
//
// A raw record is an opaque, source-specific nesting of string keys and
// arbitrary values. Accessors degrade to zero values on missing or
// wrongly-typed fields instead of panicking, so normalizers never need to
// special-case malformed input. The pair (source, source_event_id) is the
// deduplication key for the store.
package event
