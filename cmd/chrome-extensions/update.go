package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sudosubin/nix-chrome-extensions/internal/chromestore"
	httpclient "github.com/sudosubin/nix-chrome-extensions/internal/http"
	"github.com/sudosubin/nix-chrome-extensions/internal/shard"
	"github.com/sudosubin/nix-chrome-extensions/internal/update"
)

func updateCmd() *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "update [shard]",
		Short: "Update one shard of the tracked extensions",
		Long: `Update resolves every extension of one shard and writes the result to
<data-dir>/shard/<index>.json. The shard is given as "index/size", e.g.
"2/4" for the second of four shards. Without an argument the whole
registry is updated as shard 1/1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) > 0 {
				raw = args[0]
			}
			spec, err := shard.Parse(raw)
			if err != nil {
				return err
			}

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("keep-going") {
				settings.KeepGoing = keepGoing
			}

			maxSize, err := settings.DownloadLimit()
			if err != nil {
				return err
			}

			client := httpclient.NewClient(httpclient.Options{
				Timeout:   settings.HTTPTimeout,
				UserAgent: settings.UserAgent,
				MaxSize:   maxSize,
			})
			logger := newLogger(cmd.OutOrStdout(), settings.LogLevel)
			resolvers := map[string]update.Resolver{
				chromestore.Site: chromestore.NewResolver(client, settings.UpdateURL, settings.ProdVersion, logProgress(logger)),
			}

			manager := update.NewManager(settings, newStore(settings), resolvers, logProgress(logger))

			report, err := manager.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), report)
			if n := len(report.Failures); n > 0 {
				logger.Warn(fmt.Sprintf("%d extensions could not be updated", n))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "record failing extensions and continue with the rest")

	return cmd
}

func downloaded(report *update.Report) string {
	return humanize.Bytes(uint64(report.Downloaded))
}
