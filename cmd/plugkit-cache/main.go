// plugkit-cache inspects and manages the discovery cache entries that
// plugkit registries write. Registries handle their own cache lifecycle at
// runtime; this tool exists for the operator who wants to see what is
// cached, check an entry against the live plugin tree, or wipe entries
// after moving a plugin directory around.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugkit/diskcache"
	"github.com/ferro-labs/plugkit/internal/version"
)

var cacheDir string

var rootCmd = &cobra.Command{
	Use:   "plugkit-cache",
	Short: "Inspect and manage plugkit discovery caches",
	Long: `plugkit-cache inspects and manages the per-user discovery cache that
plugkit registries write. Each entry records the plugin units and keys one
registry saw during its last scan; registries trust an entry only while the
recorded units are unchanged on disk.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "",
		"cache directory (default: the per-user plugkit cache)")
}

func openStore() *diskcache.Store {
	return diskcache.New(cacheDir)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
