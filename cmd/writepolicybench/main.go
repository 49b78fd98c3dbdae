// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagLogLevel string
	flagLogDir   string
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "wpbench",
	Short: "Evaluate online memory-write policies against frozen episode streams",
	Long: `wpbench runs a write policy against one or more episode streams across
a budget grid and reports recall, precision, utility, and byte-accounting
metrics per condition.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "", "directory for a rotated log file (empty disables file logging)")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "suppress stderr logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateManifestCmd)
	rootCmd.AddCommand(listPoliciesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitMalformedEpisode)
	}
}
