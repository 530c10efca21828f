// Package scraper fetches and parses the three supported event websites into
// raw records. Each scraper is deliberately tolerant: selectors are tried in
// fallback order, missing markup yields missing keys, and a failed detail
// fetch produces an error-marker record ({"error": ...}) instead of aborting
// the run. Interpretation of the raw records is the normalizers' job.
package scraper
