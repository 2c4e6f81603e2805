package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugkit"
	"github.com/ferro-labs/plugkit/internal/version"
)

var verifyPatterns []string

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check a cache entry against the live plugin tree",
	Long: `Verify walks the plugin directory a cache entry was built from, using the
same enumeration a registry scan uses, and reports whether the entry would
still be trusted. A stale entry is not a problem at runtime: the owning
registry rescans and rewrites it on its next first access.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringSliceVar(&verifyPatterns, "patterns",
		[]string{"*.yaml", "*.yml", "*.json"},
		"unit file patterns the registry scans with")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	id := args[0]
	store := openStore()
	entry, err := store.Load(id)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no cache entry %s under %s", id, store.Root())
	}

	live, err := plugkit.ListUnits(entry.Package, verifyPatterns)
	if err != nil {
		return fmt.Errorf("listing units under %s: %w", entry.Package, err)
	}
	if err := entry.Validate(version.CacheSchema, live); err != nil {
		return fmt.Errorf("entry %s is stale: %w", id, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "entry %s is valid: %s, %d units, %d keys\n",
		id, entry.Package, len(entry.Modules), len(entry.Keys))
	return nil
}
