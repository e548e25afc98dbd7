// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/places"
)

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Manage stored places",
}

var placesListOptions places.Filter

var placesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored places",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, closeStore, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		ps, err := store.List(cmd.Context(), placesListOptions)
		if err != nil {
			return err
		}

		a, b, c := strings.Repeat("─", 5), strings.Repeat("─", 30), strings.Repeat("─", 22)
		fmt.Printf("╭─%5s─┬─%-30s─┬─%-22s─┬─%s\n", a, b, c, b)
		fmt.Printf("│ %5s │ %-30s │ %-22s │ %s\n", "Id", "Name", "Coordinates", "Address")
		fmt.Printf("├─%5s─┼─%-30s─┼─%-22s─┼─%s\n", a, b, c, b)

		for _, p := range ps {
			fmt.Printf("│ %5d │ %-30s │ %-22s │ %s\n", p.ID, truncate(p.Name, 30), p.Coords, p.Address)
		}

		fmt.Printf("╰─%5s─┴─%-30s─┴─%-22s─┴─%s\n", a, b, c, b)

		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

var placesExportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Write every place and preference to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := places.ExportToJSON(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}

		slog.Info("places exported", "path", args[0], "places", n)

		return nil
	},
}

var placesLoadCmd = &cobra.Command{
	Use:   "load <file.json>",
	Short: "Load places from a JSON file written by export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		res, err := places.ImportFromJSON(cmd.Context(), store, args[0])
		if err != nil {
			return err
		}

		slog.Info("places loaded", "path", args[0], "total", res.Total, "added", len(res.Added), "skipped", res.Skipped)
		syncCache(cmd.Context(), store)

		return nil
	},
}

var placesFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Re-geocode places whose coordinates are outside the region",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, closeStore, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		geo, err := newGeocoder(ctx, nil)
		if err != nil {
			return fmt.Errorf("creating geocoder: %w", err)
		}

		bar := newProgress("Fixing coordinates")

		report, err := importer.NewFixer(store, geo, importer.ConfigFrom(cfg), importer.WithFixerProgress(bar.Update)).Run(ctx)
		bar.Finish()

		if report != nil {
			fmt.Printf("Checked %d places, %d outside %s: %d fixed, %d unresolved\n",
				report.Checked, report.Invalid, cfg.Region.Name, len(report.Fixed), len(report.Unresolved))

			for _, p := range report.Unresolved {
				fmt.Printf("  %5d %s\n", p.ID, p)
			}

			if len(report.Fixed) > 0 {
				syncCache(context.WithoutCancel(ctx), store)
			}
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(placesCmd)
	placesCmd.AddCommand(placesListCmd, placesExportCmd, placesLoadCmd, placesFixCmd)

	flags := placesListCmd.Flags()
	flags.StringVarP(&placesListOptions.Query, "query", "q", "", "match name or address")
	flags.StringVar(&placesListOptions.Source, "source", "", "only places with this source, e.g. google_maps_coordinates")
	flags.IntVar(&placesListOptions.Limit, "limit", 0, "maximum number of places")
}
