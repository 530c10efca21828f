package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var flagStatsFormat string

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stored event counts per source",
		RunE:  runStats,
	}
	cmd.Flags().StringVar(&flagStatsFormat, "format", "text", "Output format: text or json")
	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagStatsFormat)
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

	ctx := cmd.Context()
	total, err := store.Total(ctx)
	if err != nil {
		return err
	}
	counts, err := store.CountBySource(ctx)
	if err != nil {
		return err
	}
	return writeStats(os.Stdout, total, counts, format)
}
