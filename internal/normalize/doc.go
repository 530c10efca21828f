// Package normalize maps raw per-source records onto the canonical event
// schema. One normalizer exists per source; each is a pure function that
// never returns an error — every field independently degrades to absent when
// its raw input is missing or malformed.
//
// Normalizers must only be invoked on records that are not error markers;
// filtering those is the caller's job (see internal/ingest). Normalization is
// deterministic: the same raw record always yields a field-for-field
// identical event, which the insert-or-ignore dedup policy depends on.
package normalize
