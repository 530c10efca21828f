// Command eventsammler collects German event listings from regional websites
// into a deduplicated SQLite database and serves them over a small web UI.
package main

import "github.com/weserbergland/eventsammler/internal/cli"

func main() {
	cli.Execute()
}
