// Package datetext parses German-language date and time fragments as they
// appear on regional event websites: long-form dates ("Samstag, 3. März 2024"),
// numeric dates ("12.05.2024"), "von X bis Y" ranges, and clock times with the
// trailing "Uhr" suffix.
//
// Every parser is a pure function that returns nil (or "") when no match is
// found. Parsers never return errors and never panic, so normalizers can
// compose them into fallback chains without special-casing failure. All
// wall-clock values are interpreted in the fixed Europe/Berlin timezone.
package datetext
