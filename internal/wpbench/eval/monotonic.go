// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package eval

import (
	"fmt"
	"sort"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/metrics"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
)

// AssertMonotonicRecall runs factory across budgets (ascending) for one
// episode and returns an error if recall ever decreases as the budget
// grows, the regression check for any policy claimed to be monotonic (one
// whose action set at budget B is a subset of its action set at budget
// B' > B).
func AssertMonotonicRecall(factory policy.Factory, ep episode.Episode, budgets []int, track policy.Track) error {
	sorted := append([]int(nil), budgets...)
	sort.Ints(sorted)

	prevRecall := -1.0
	prevBudget := 0
	for _, budget := range sorted {
		seed := policy.Seed(ep.ID, budget, factory.ID())
		p := factory.New(seed)
		store := memstore.NewStore(budget)

		for _, step := range ep.Steps {
			visible := policy.ForTrack(step, track)
			actions := p.Select(visible, store.View())
			for _, action := range actions {
				store.Apply(action, step.T)
			}
		}

		row := metrics.Compute(store, ep)
		if prevRecall >= 0 && row.Recall < prevRecall-1e-12 {
			return fmt.Errorf("recall decreased from %.6f (budget %d) to %.6f (budget %d)",
				prevRecall, prevBudget, row.Recall, budget)
		}
		prevRecall = row.Recall
		prevBudget = budget
	}
	return nil
}
