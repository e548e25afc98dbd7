// Copyright 2025 The FoodMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

// eachInput calls fn for every argument, or for every non-empty stdin line
// when there are none.
func eachInput(args []string, prompt string, fn func(string)) error {
	if len(args) > 0 {
		for _, a := range args {
			fn(a)
		}

		return nil
	}

	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

var debugResolveCmd = &cobra.Command{
	Use:   "resolve [url…]",
	Short: "Resolve share links to coordinates or an address",
	Long: `Prints every URL followed by what it resolved to.

$ echo 'https://www.google.com/maps/place/Lau+Pa+Sat/@1.2806,103.8504,17z' | foodmap debug resolve
https://www.google.com/maps/place/Lau+Pa+Sat/@1.2806,103.8504,17z	coordinates(1.280600,103.850400) via url_at_sign
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e := newExtractor(nil)

		return eachInput(args, "Enter URLs to resolve, one per line…", func(u string) {
			fmt.Printf("%s\t%s\n", u, e.Extract(cmd.Context(), u))
		})
	},
}

var debugGeocodeCmd = &cobra.Command{
	Use:   "geocode [address…]",
	Short: "Geocode addresses with the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		geo, err := newGeocoder(ctx, nil)
		if err != nil {
			return err
		}

		return eachInput(args, "Enter addresses to geocode, one per line…", func(addr string) {
			if pt, ok := geo.Geocode(ctx, addr); ok {
				fmt.Printf("%s\t%s\t%s\n", addr, pt, geo.Provider().Name())
			} else {
				fmt.Printf("%s\t%q\n", addr, "not found")
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugResolveCmd, debugGeocodeCmd)
}
