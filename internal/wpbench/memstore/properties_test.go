// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memstore

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/propcheck"
)

// randomRun is what the generators below produce: a budget and a random
// sequence of actions to apply in order, each tagged with the currentT it
// should be applied under (mirroring how the driver advances step by step).
type randomRun struct {
	maxBytes int
	actions  []Action
	atT      []int
}

func randomObservation(rnd *rand.Rand, t int) map[string]any {
	api := "x"
	if rnd.Intn(4) == 0 {
		api = "y"
	}
	return map[string]any{
		"api": api,
		"v":   float64(rnd.Intn(100)),
	}
}

func genRandomRun(rnd *rand.Rand) any {
	maxBytes := rnd.Intn(2000)
	n := rnd.Intn(12)

	run := randomRun{maxBytes: maxBytes}
	existing := []int{}

	for t := 0; t < n; t++ {
		var action Action
		switch rnd.Intn(4) {
		case 0:
			action = SkipAction()
		case 1:
			action = WriteAction(episode.Step{T: t, Observation: randomObservation(rnd, t), Metadata: map[string]any{}})
		case 2:
			if len(existing) == 0 {
				action = SkipAction()
			} else {
				target := existing[rnd.Intn(len(existing))]
				action = MergeAction(episode.Step{T: t, Observation: randomObservation(rnd, t), Metadata: map[string]any{}}, target)
			}
		case 3:
			if len(existing) == 0 {
				action = SkipAction()
			} else {
				target := existing[rnd.Intn(len(existing))]
				action = ExpireAction(target)
			}
		}
		run.actions = append(run.actions, action)
		run.atT = append(run.atT, t)
		existing = append(existing, t)
	}
	return run
}

func TestProperty_ByteAccountingInvariant(t *testing.T) {
	prop := propcheck.Property{
		Name:      "P1: sum(byte_cost) == bytes_used <= max_bytes",
		Generator: genRandomRun,
		Check: func(input any) (bool, string) {
			run := input.(randomRun)
			s := NewStore(run.maxBytes)
			for i, action := range run.actions {
				s.Apply(action, run.atT[i])

				sum := 0
				for _, item := range s.Items() {
					sum += item.ByteCost
				}
				if sum != s.BytesUsed() {
					return false, "sum(byte_cost) diverged from bytes_used"
				}
				if s.BytesUsed() > s.MaxBytes() {
					return false, "bytes_used exceeded max_bytes"
				}
			}
			return true, ""
		},
	}
	result := propcheck.NewVerifier(500, 1).Verify(prop)
	require.True(t, result.Passed, result.Error())
}

func TestProperty_NoOrphanOrChainedDeltas(t *testing.T) {
	prop := propcheck.Property{
		Name:      "P2: no DELTA has an absent or DELTA parent",
		Generator: genRandomRun,
		Check: func(input any) (bool, string) {
			run := input.(randomRun)
			s := NewStore(run.maxBytes)
			for i, action := range run.actions {
				s.Apply(action, run.atT[i])
			}
			for _, item := range s.Items() {
				if item.Kind != DELTA {
					continue
				}
				parent, ok := s.Get(item.MergeParentT)
				if !ok {
					return false, "DELTA parent absent"
				}
				if parent.Kind != BASE {
					return false, "DELTA parent is itself a DELTA"
				}
			}
			return true, ""
		},
	}
	result := propcheck.NewVerifier(500, 2).Verify(prop)
	require.True(t, result.Passed, result.Error())
}

func TestProperty_RejectedActionsLeaveStoreUnchanged(t *testing.T) {
	prop := propcheck.Property{
		Name:      "P3: rejected actions are no-ops",
		Generator: genRandomRun,
		Check: func(input any) (bool, string) {
			run := input.(randomRun)
			s := NewStore(run.maxBytes)
			for i, action := range run.actions {
				beforeBytes := s.BytesUsed()
				beforeItems := snapshotItems(s)

				ok := s.Apply(action, run.atT[i])
				if ok {
					continue
				}

				if s.BytesUsed() != beforeBytes {
					return false, "rejected action changed bytes_used"
				}
				afterItems := snapshotItems(s)
				if len(beforeItems) != len(afterItems) {
					return false, "rejected action changed item count"
				}
				for j := range beforeItems {
					if beforeItems[j] != afterItems[j] {
						return false, "rejected action changed item set or order"
					}
				}
			}
			return true, ""
		},
	}
	result := propcheck.NewVerifier(500, 3).Verify(prop)
	require.True(t, result.Passed, result.Error())
}

func snapshotItems(s *Store) []int {
	items := s.Items()
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.T
	}
	return out
}

func TestProperty_NonCanonicalDeltaRejected(t *testing.T) {
	prop := propcheck.Property{
		Name: "P7: MERGE with a non-canonical explicit delta is rejected",
		Generator: func(rnd *rand.Rand) any {
			baseV := float64(rnd.Intn(50))
			incomingV := float64(rnd.Intn(50) + 50) // guaranteed different from baseV
			wrongV := float64(rnd.Intn(50) + 200)   // guaranteed different from the canonical delta
			return [3]float64{baseV, incomingV, wrongV}
		},
		Check: func(input any) (bool, string) {
			vals := input.([3]float64)
			s := NewStore(10 * 1024)
			base := episode.Step{T: 0, Observation: map[string]any{"api": "x", "v": vals[0]}, Metadata: map[string]any{}}
			s.Apply(WriteAction(base), 0)

			incoming := episode.Step{T: 1, Observation: map[string]any{"api": "x", "v": vals[1]}, Metadata: map[string]any{}}
			wrongDelta := map[string]any{"v": vals[2]}

			ok := s.Apply(MergeActionWithDelta(incoming, 0, wrongDelta), 1)
			if ok {
				return false, "MERGE with a wrong explicit delta was accepted"
			}
			return true, ""
		},
	}
	result := propcheck.NewVerifier(300, 4).Verify(prop)
	require.True(t, result.Passed, result.Error())
}

func TestProperty_ExpireOfBaseWithSurvivingChildRejected(t *testing.T) {
	prop := propcheck.Property{
		Name: "P8: EXPIRE of a BASE with a surviving DELTA child is rejected",
		Generator: func(rnd *rand.Rand) any {
			return rnd.Intn(1000)
		},
		Check: func(input any) (bool, string) {
			v := float64(input.(int))
			s := NewStore(10 * 1024)
			base := episode.Step{T: 0, Observation: map[string]any{"api": "x", "v": v}, Metadata: map[string]any{}}
			s.Apply(WriteAction(base), 0)
			child := episode.Step{T: 1, Observation: map[string]any{"api": "x", "v": v + 1}, Metadata: map[string]any{}}
			if !s.Apply(MergeAction(child, 0), 1) {
				return true, "" // canonical delta happened to be empty; not this property's concern
			}
			if s.Apply(ExpireAction(0), 2) {
				return false, "EXPIRE of a BASE with a surviving DELTA child was accepted"
			}
			return true, ""
		},
	}
	result := propcheck.NewVerifier(300, 5).Verify(prop)
	require.True(t, result.Passed, result.Error())
}
