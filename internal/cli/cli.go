package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/weserbergland/eventsammler/internal/config"
	"github.com/weserbergland/eventsammler/internal/event"
	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/logging"
	"github.com/weserbergland/eventsammler/internal/metrics"
	"github.com/weserbergland/eventsammler/internal/scraper"
	"github.com/weserbergland/eventsammler/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig    string
	flagVerbose   bool
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventsammler",
		Short: "Collect German event listings into one deduplicated database",
		Long: `Eventsammler scrapes regional event websites (siwikultur.de,
meine-flohmarkt-termine.de, hamelnr.de), normalizes their listings into one
canonical schema, and stores them deduplicated in SQLite.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: json or console")

	cmd.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newListCmd(),
		newStatsCmd(),
		newPurgeCmd(),
	)
	return cmd
}

// loadConfig reads .env, the layered configuration, applies the logging flag
// overrides, and initializes the global logger.
func loadConfig() (*config.Config, error) {
	godotenv.Load()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", cfg.Database.Path, err)
	}
	return store, nil
}

// buildRunner assembles the import pipeline from the enabled sources.
func buildRunner(cfg *config.Config, store *storage.Store, m *metrics.Metrics) *ingest.Runner {
	scrapeCfg := scraper.Config{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.Scrape.Timeout,
		Delay:     cfg.Scrape.Delay,
		Retries:   cfg.Scrape.Retries,
	}

	var scrapers []scraper.Scraper
	if cfg.Sources.Siwikultur.Enabled {
		scrapers = append(scrapers, scraper.NewSiwikultur(cfg.Sources.Siwikultur.BaseURL, scrapeCfg))
	}
	if cfg.Sources.Flohmarkt.Enabled {
		scrapers = append(scrapers, scraper.NewFlohmarkt(cfg.Sources.Flohmarkt.BaseURL, scrapeCfg))
	}
	if cfg.Sources.Hamelnr.Enabled {
		scrapers = append(scrapers, scraper.NewHamelnr(cfg.Sources.Hamelnr.BaseURL, scrapeCfg))
	}
	return ingest.NewRunner(store, m, scrapers...)
}

// parseSourceArg maps the --source flag to a concrete source, "" and "all"
// meaning every enabled source.
func parseSourceArg(name string) (event.Source, bool, error) {
	if name == "" || name == "all" || name == "ALL" {
		return "", true, nil
	}
	src, err := event.ParseSource(name)
	if err != nil {
		return "", false, err
	}
	return src, false, nil
}

// Execute runs the CLI.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
