package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imbue-digital/visibility-cli/internal/model"
	"github.com/imbue-digital/visibility-cli/internal/resilience"
)

var batchAttempts int

// batchCmd is the cron entrypoint: it forces a fresh aggregation with
// retry-on-transient so the serve path almost always finds a warm cache.
// Individual adapter failures never surface here (they degrade inside the
// pass); retries cover whole-pass failures like a total provider outage.
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Refresh the cached ranking (scheduled warmer)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.MaxAttempts = batchAttempts
		retryCfg.OnRetry = resilience.RetryLogger("batch refresh")
		// A whole-pass failure here means every provider was down at once;
		// that is worth retrying even when the wrapped cause isn't a
		// recognizably transient network error.
		retryCfg.ShouldRetry = func(error) bool { return true }

		start := time.Now()
		snapshot, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (model.RankingSnapshot, error) {
			return env.Engine.Refresh(ctx)
		})
		if err != nil {
			return eris.Wrap(err, "batch refresh")
		}

		zap.L().Info("cache warmed",
			zap.String("snapshot_id", snapshot.ID),
			zap.Int("entities", len(snapshot.Entities)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchAttempts, "attempts", 3, "max aggregation attempts")
	rootCmd.AddCommand(batchCmd)
}
