// Package main provides the chrome-extensions command: it keeps the
// extension catalog in the data directory up to date.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sudosubin/nix-chrome-extensions/internal/catalog"
	"github.com/sudosubin/nix-chrome-extensions/internal/config"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

var (
	cfgFile string
	dataDir string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chrome-extensions",
		Short: "Track browser extensions and keep their catalog up to date",
		Long: `chrome-extensions resolves every extension listed in the registry,
fetches the packages that changed and writes per-site catalogs.

Commands:
  update [shard]  Update one shard of the registry (default 1/1)
  combine         Merge shard results into the final catalogs`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON, YAML or TOML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(combineCmd())
	rootCmd.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "chrome-extensions %s (commit: %s)\n", version, commit)
		},
	}
}

// loadSettings loads the config file and applies the persistent flags.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	if verbose {
		settings.LogLevel = "debug"
	}
	return settings, nil
}

func newStore(settings *config.Settings) *catalog.Store {
	return catalog.NewStore(settings.DataDir, settings.RegistryFile, settings.ShardDir)
}
