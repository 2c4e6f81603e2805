package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cache entries",
	Long:  `List every discovery cache entry in the cache directory.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry is one cache entry as displayed.
type listEntry struct {
	ID      string `json:"id"`
	Package string `json:"package,omitempty"`
	Units   int    `json:"units"`
	Keys    int    `json:"keys"`
	Created string `json:"created_at,omitempty"`
	Status  string `json:"status"`
}

func runList(cmd *cobra.Command, args []string) error {
	store := openStore()
	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No cache entries under %s.\n", store.Root())
		return nil
	}

	var entries []listEntry
	for _, id := range ids {
		e := listEntry{ID: id, Status: "ok"}
		entry, err := store.Load(id)
		switch {
		case err != nil:
			e.Status = "corrupt"
		case entry == nil:
			continue
		default:
			e.Package = entry.Package
			e.Units = len(entry.Modules)
			e.Keys = len(entry.Keys)
			e.Created = entry.CreatedAt.Format(time.RFC3339)
		}
		entries = append(entries, e)
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPACKAGE\tUNITS\tKEYS\tCREATED\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n", e.ID, e.Package, e.Units, e.Keys, e.Created, e.Status)
	}
	return w.Flush()
}
