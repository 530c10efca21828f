package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weserbergland/eventsammler/internal/web"
)

var (
	flagPurgeYes    bool
	flagPurgeVacuum bool
)

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all stored events and compact the database",
		Long: fmt.Sprintf(`Deletes every stored event, resets the row counter, and vacuums the
database file. Without --yes the command asks for the confirmation text
%q on standard input.`, web.PurgeConfirmation),
		RunE: runPurge,
	}
	cmd.Flags().BoolVar(&flagPurgeYes, "yes", false, "Skip the interactive confirmation")
	cmd.Flags().BoolVar(&flagPurgeVacuum, "vacuum", true, "Compact the database file after deleting")
	return cmd
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if !flagPurgeYes {
		fmt.Fprintf(os.Stdout, "Type %q to delete all events: ", web.PurgeConfirmation)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading confirmation: %w", err)
		}
		if strings.TrimSpace(line) != web.PurgeConfirmation {
			return fmt.Errorf("confirmation did not match, nothing deleted")
		}
	}

	n, err := store.DeleteAll(cmd.Context(), flagPurgeVacuum)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %d events.\n", n)
	return nil
}
