package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rankLive bool

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Run one aggregation pass and print the ranking as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		snapshot, live := env.Engine.Ranking(ctx)
		if rankLive {
			refreshed, err := env.Engine.Refresh(ctx)
			if err != nil {
				zap.L().Warn("forced refresh failed, printing cascade result", zap.Error(err))
			} else {
				snapshot, live = refreshed, true
			}
		}

		zap.L().Info("ranking ready",
			zap.String("snapshot_id", snapshot.ID),
			zap.Bool("live", live),
			zap.Bool("fallback", snapshot.IsFallback),
			zap.Bool("stale", snapshot.Stale),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

func init() {
	rankCmd.Flags().BoolVar(&rankLive, "live", false, "force a fresh aggregation instead of serving from cache")
	rootCmd.AddCommand(rankCmd)
}
