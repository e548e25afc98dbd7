// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/htlee1999/food-map/config"
	"github.com/htlee1999/food-map/utils/logutils"
)

var (
	v       = viper.New()
	cfgFile string
	cfg     *config.Config

	traceHTTP     bool
	traceHTTPBody bool
)

var rootCmd = &cobra.Command{
	Use:   "foodmap",
	Short: "keep track of places to eat",
	Long: `
foodmap keeps a list of restaurants and hawker stalls, imports them from saved
map lists and spreadsheets, and resolves share links and addresses to
coordinates.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}

		logutils.Setup(cfg.Log.Level)

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "configuration file (yaml, toml or json)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("db-path", "db/foodmap.duckdb", "DuckDB database file")
	flags.String("cache-path", "data/places.json", "JSON file used when the database is unavailable")
	flags.BoolVar(&traceHTTP, "trace-http", false, "Display HTTP requests-responses")
	flags.BoolVar(&traceHTTPBody, "trace-http-body", false, "Display HTTP requests-responses bodies")

	cobra.CheckErr(v.BindPFlag("log.level", flags.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("database.path", flags.Lookup("db-path")))
	cobra.CheckErr(v.BindPFlag("cache.path", flags.Lookup("cache-path")))
}
