package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one cache entry as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	store := openStore()
	entry, err := store.Load(args[0])
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no cache entry %s under %s", args[0], store.Root())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(entry)
}
