package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/weserbergland/eventsammler/internal/storage"
)

var (
	flagListSource string
	flagListSearch string
	flagListFrom   string
	flagListTo     string
	flagListLimit  int
	flagListSort   string
	flagListFormat string
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored events",
		RunE:  runList,
	}
	cmd.Flags().StringVar(&flagListSource, "source", "", "Filter by source, empty or 'all' for every source")
	cmd.Flags().StringVar(&flagListSearch, "search", "", "Substring to match in title or description")
	cmd.Flags().StringVar(&flagListFrom, "from", "", "Keep events starting at or after this ISO timestamp")
	cmd.Flags().StringVar(&flagListTo, "to", "", "Keep events starting at or before this ISO timestamp")
	cmd.Flags().IntVar(&flagListLimit, "limit", 0, "Maximum rows, 0 for the default cap")
	cmd.Flags().StringVar(&flagListSort, "sort", "date", "Sort order: date, title or source")
	cmd.Flags().StringVar(&flagListFormat, "format", "text", "Output format: text or json")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagListFormat)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagListSort)
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

	rows, err := store.Query(cmd.Context(), storage.Filter{
		Source:    flagListSource,
		Search:    flagListSearch,
		StartFrom: flagListFrom,
		StartTo:   flagListTo,
		Limit:     flagListLimit,
	})
	if err != nil {
		return err
	}

	sortEvents(rows, order)
	return writeEvents(os.Stdout, rows, format)
}
