package main

import (
	"github.com/spf13/cobra"

	"github.com/sudosubin/nix-chrome-extensions/internal/combine"
)

func combineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "combine",
		Short: "Merge shard results into the final catalogs",
		Long: `Combine sorts the registry, merges every <data-dir>/shard/*.json into
<data-dir>/<site>.json and removes the shard directory. It is safe to run
again when there are no shard results left.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			logger := newLogger(cmd.OutOrStdout(), settings.LogLevel)
			combiner := combine.NewCombiner(settings, newStore(settings), logProgress(logger))

			summary, err := combiner.Run(cmd.Context())
			if err != nil {
				return err
			}

			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}
