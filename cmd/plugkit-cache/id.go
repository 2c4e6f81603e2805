package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugkit/diskcache"
)

var idCmd = &cobra.Command{
	Use:   "id <dir> <key-field>",
	Short: "Print the cache entry ID a registry over dir would use",
	Long: `Print the cache entry ID for a registry discovering dir with the given
key field. The ID is what list, show, verify, and clear operate on.`,
	Args: cobra.ExactArgs(2),
	RunE: runID,
}

func init() {
	rootCmd.AddCommand(idCmd)
}

func runID(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), diskcache.EntryID(dir, args[1]))
	return nil
}
