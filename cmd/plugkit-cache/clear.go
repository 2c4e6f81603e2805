package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearAll bool

var clearCmd = &cobra.Command{
	Use:   "clear [id...]",
	Short: "Delete cache entries",
	Long: `Delete the named cache entries, or every entry with --all. Registries
rebuild deleted entries on their next first access.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "Delete every entry in the cache directory")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	store := openStore()

	ids := args
	if clearAll {
		if len(args) > 0 {
			return fmt.Errorf("--all does not take entry IDs")
		}
		var err error
		ids, err = store.List()
		if err != nil {
			return err
		}
	} else if len(ids) == 0 {
		return fmt.Errorf("nothing to clear: pass entry IDs or --all")
	}

	for _, id := range ids {
		if err := store.Delete(id); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cache entries under %s\n", len(ids), store.Root())
	return nil
}
