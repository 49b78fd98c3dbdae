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
	"sort"

	"github.com/spf13/cobra"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
)

var validateManifestCmd = &cobra.Command{
	Use:   "validate-manifest [manifest.yaml]",
	Short: "Verify every episode set named in a manifest against its frozen hash and count",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateManifest,
}

func runValidateManifest(cmd *cobra.Command, args []string) error {
	manifest, err := episode.LoadManifest(args[0])
	if err != nil {
		printError("loading manifest", err)
		os.Exit(ExitMalformedEpisode)
	}

	names := make([]string, 0, len(manifest))
	for name := range manifest {
		names = append(names, name)
	}
	sort.Strings(names)

	printTitle(fmt.Sprintf("validating %d episode set(s)", len(names)))

	mismatched := false
	for _, name := range names {
		_, err := episode.LoadVerifiedStream(manifest, name)
		if err != nil {
			mismatched = true
			printError(fmt.Sprintf("episode set %q", name), err)
			continue
		}
		printOK(fmt.Sprintf("%-30s OK (count=%d)", name, manifest[name].Count))
	}

	if mismatched {
		os.Exit(ExitManifestMismatch)
	}
	return nil
}
