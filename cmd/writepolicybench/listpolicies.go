// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/refpolicy"
)

var listPoliciesCmd = &cobra.Command{
	Use:   "list-policies",
	Short: "List the reference policy ids known to this build",
	Run: func(cmd *cobra.Command, args []string) {
		printTitle("available policy ids")
		for _, f := range refpolicy.All() {
			fmt.Printf("  %s\n", f.ID())
		}
	},
}
