package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weserbergland/eventsammler/internal/datetext"
	"github.com/weserbergland/eventsammler/internal/ingest"
	"github.com/weserbergland/eventsammler/internal/scraper"
)

var (
	flagImportSource string
	flagImportDate   string
	flagImportLimit  int
	flagImportFormat string
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Scrape one or all sources and store the events",
		RunE:  runImport,
	}
	cmd.Flags().StringVar(&flagImportSource, "source", "all", "Source to import: siwikultur, flohmarkt, hamelnr or all")
	cmd.Flags().StringVar(&flagImportDate, "date", "", "Listing date as YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&flagImportLimit, "limit", 0, "Maximum records per source, 0 for no cap")
	cmd.Flags().StringVar(&flagImportFormat, "format", "text", "Output format: text or json")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagImportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := scraper.Options{Limit: flagImportLimit}
	if flagImportLimit == 0 {
		opts.Limit = cfg.Scrape.Limit
	}
	if flagImportDate != "" {
		t, err := time.ParseInLocation("2006-01-02", flagImportDate, datetext.Berlin)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		opts.Date = t
	}

	runner := buildRunner(cfg, store, nil)
	ctx := cmd.Context()

	var results []ingest.Result
	src, all, err := parseSourceArg(flagImportSource)
	if err != nil {
		return err
	}
	if all {
		results, err = runner.RunAll(ctx, opts)
	} else {
		var res ingest.Result
		res, err = runner.Run(ctx, src, opts)
		results = []ingest.Result{res}
	}
	if werr := writeResults(os.Stdout, results, format); werr != nil {
		return werr
	}
	return err
}
