// Package cli implements the command-line interface for eventsammler.
//
// The cli package provides the Cobra-based CLI with subcommands for running
// the web server (serve), importing sources (import), inspecting the store
// (list, stats), and wiping it (purge). It wires configuration, logging,
// scrapers, storage, and the web layer together.
package cli
