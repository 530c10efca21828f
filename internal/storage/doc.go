// Package storage persists canonical events in a single SQLite table with a
// uniqueness constraint on (source, source_event_id).
//
// Writes are insert-or-ignore: a conflicting insert is counted as ignored,
// never merged or updated. First-seen wins — a later scrape that parses more
// fields does not heal an existing row. That is a deliberate at-most-once
// write policy inherited from the original collector, which is why
// normalization must be deterministic and as complete as possible on first
// encounter.
package storage
