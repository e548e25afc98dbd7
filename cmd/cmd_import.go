// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/htlee1999/food-map/importer"
	"github.com/htlee1999/food-map/places"
)

const maxFailuresShown = 5

var importOptions struct {
	apiURL string
	dryRun bool
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import places from a CSV file",
	Long: `Reads a CSV file (a saved places list with Title, Note and URL columns, the
food establishment licence dataset, or any file with name and address
columns), resolves every row to coordinates and stores the new places.

With --api-url places are sent to a running server; when it is not reachable
they are written to the local cache file instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		rows, err := importer.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}

		store, closeStore, err := importStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		geo, err := newGeocoder(ctx, nil)
		if err != nil {
			return fmt.Errorf("creating geocoder: %w", err)
		}

		bar := newProgress("Importing " + args[0])

		p := importer.New(store, newExtractor(nil), geo, importer.ConfigFrom(cfg),
			importer.WithProgress(bar.Update),
			importer.WithDryRun(importOptions.dryRun),
		)

		res, err := p.Run(ctx, rows)
		bar.Finish()

		if res != nil {
			printImportSummary(os.Stdout, res)

			if !res.DryRun && len(res.Added) > 0 {
				syncCache(context.WithoutCancel(ctx), store)
			}
		}

		return err
	},
}

// importStore returns the remote server when --api-url is set and healthy,
// the local cache when it is set but unreachable, and the database
// otherwise.
func importStore(ctx context.Context) (places.Backend, func(), error) {
	if importOptions.apiURL == "" {
		return openBackend(ctx)
	}

	cache, err := places.OpenFileStore(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening local cache: %w", err)
	}

	remote := places.NewClient(importOptions.apiURL, httpClient(cfg.Geocoder.Timeout, userAgent()))

	return places.WithFallback(ctx, remote, cache), func() {}, nil
}

func printImportSummary(w io.Writer, res *importer.Result) {
	verb := "Added"
	if res.DryRun {
		verb = "Would add"
	}

	fmt.Fprintf(w, "Processed %d rows (run %s)\n", res.Total, res.RunID)
	fmt.Fprintf(w, "  %-19s %d\n", verb+":", len(res.Added))
	fmt.Fprintf(w, "  %-19s %d\n", "Skipped duplicates:", res.Skipped)
	fmt.Fprintf(w, "  %-19s %d\n", "Failed rows:", len(res.Failed))
	fmt.Fprintf(w, "  %-19s %d\n", "Geocoding failures:", len(res.GeocodingFailures))

	for i, f := range res.Failed {
		if i == maxFailuresShown {
			fmt.Fprintf(w, "    … and %d more failed rows\n", len(res.Failed)-i)

			break
		}

		fmt.Fprintf(w, "    row %d: %s %s\n", f.Index+1, f.Reason, f.Error)
	}

	for i, g := range res.GeocodingFailures {
		if i == maxFailuresShown {
			fmt.Fprintf(w, "    … and %d more geocoding failures\n", len(res.GeocodingFailures)-i)

			break
		}

		fmt.Fprintf(w, "    row %d: %q (%s) tried %s\n", g.Index+1, g.Name, g.Address, strings.Join(g.Attempts, ", "))
	}
}

func init() {
	rootCmd.AddCommand(importCmd)

	flags := importCmd.Flags()
	flags.StringVar(&importOptions.apiURL, "api-url", "", "store places through a running server, e.g. http://localhost:3001")
	flags.BoolVar(&importOptions.dryRun, "dry-run", false, "resolve rows without storing them")
	flags.Int("batch-size", 5, "rows resolved concurrently")
	flags.Duration("batch-delay", 500*time.Millisecond, "pause between batches")

	cobra.CheckErr(v.BindPFlag("import.batch_size", flags.Lookup("batch-size")))
	cobra.CheckErr(v.BindPFlag("import.batch_delay", flags.Lookup("batch-delay")))
}
