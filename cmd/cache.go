package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the persisted ranking cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached snapshot's age and expiry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, _, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		entry, err := store.Get(ctx, cfg.Cache.Key)
		if err != nil {
			return err
		}

		status := map[string]any{
			"key":    cfg.Cache.Key,
			"driver": cfg.Cache.Driver,
			"cached": entry != nil,
		}
		if entry != nil {
			now := time.Now().UTC()
			status["snapshot_id"] = entry.Snapshot.ID
			status["generated_at"] = entry.Snapshot.GeneratedAt
			status["expires_at"] = entry.ExpiresAt
			status["expired"] = entry.Expired(now)
			status["entities"] = len(entry.Snapshot.Entities)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the cached snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, _, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(ctx, cfg.Cache.Key); err != nil {
			return err
		}
		zap.L().Info("cache cleared", zap.String("key", cfg.Cache.Key))
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
