// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperscout/internal/embedcache"
	"github.com/pdiddy/paperscout/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent embedding cache",
	Long: `Cache inspects or empties the embedding store selected by cache.backend
(sqlite or redis). With the "none" backend vectors live only for the
lifetime of one process and there is nothing to manage.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many vectors the store holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, err := openStore(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Backend: %s\nVectors: %d\n", cfg.Cache.Backend, n)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored vector",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := context.Background()
		store, err := openStore(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(ctx); err != nil {
			return err
		}
		fmt.Printf("Cleared %s embedding cache\n", cfg.Cache.Backend)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openStore(ctx context.Context, cfg types.CacheConfig) (embedcache.Store, error) {
	store, err := embedcache.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("cache backend is %q; set cache.backend to sqlite or redis", types.CacheNone)
	}
	return store, nil
}
