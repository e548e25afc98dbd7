// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/metrics"
	"github.com/htlee1999/food-map/places"
	"github.com/htlee1999/food-map/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API",
	Long: `Serves the places, preferences and import endpoints. An empty database is
seeded from the local cache file; when the database cannot be opened the cache
file is served instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if _, ok := store.(*places.Repository); ok {
			seeded, n, err := places.SeedIfEmpty(ctx, store, cfg.Cache.Path)
			if err != nil {
				return fmt.Errorf("seeding database: %w", err)
			}

			if seeded {
				slog.Info("database seeded from the local cache", "path", cfg.Cache.Path, "places", n)
			}
		}

		m, err := metrics.New()
		if err != nil {
			return err
		}

		geo, err := newGeocoder(ctx, m)
		if err != nil {
			return fmt.Errorf("creating geocoder: %w", err)
		}

		srv := server.New(store, importer.ConfigFrom(cfg),
			server.WithExtractor(newExtractor(m)),
			server.WithGeocoder(geo),
			server.WithFetcher(directFetcher()),
			server.WithMetrics(m),
		)

		err = srv.Run(ctx, cfg.Server.Addr())

		syncCache(context.WithoutCancel(ctx), store)

		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("host", "localhost", "address to listen on")
	flags.Int("port", 3001, "port to listen on")

	cobra.CheckErr(v.BindPFlag("server.host", flags.Lookup("host")))
	cobra.CheckErr(v.BindPFlag("server.port", flags.Lookup("port")))
}
