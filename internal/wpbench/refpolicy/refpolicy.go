// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package refpolicy provides the small set of reference policies the CLI
// ships so `wpbench run` has something runnable out of the box. A concrete
// policy library is an external collaborator of this module: these exist
// to exercise the Policy interface and the monotonic-recall regression
// check, not as a production policy catalog.
package refpolicy

import (
	"math/rand"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
)

// greedyWrite writes every step that fits under the current budget and
// never merges or expires. Its action set at a larger budget is always a
// superset of its action set at a smaller one, so it is monotonic (P6).
type greedyWrite struct{}

func (greedyWrite) Select(step episode.Step, view policy.View) []memstore.Action {
	if view.Contains(step.T) {
		return nil
	}
	return []memstore.Action{memstore.WriteAction(step)}
}

type greedyWriteFactory struct{}

func (greedyWriteFactory) ID() string                  { return "greedy-write" }
func (greedyWriteFactory) New(seed int64) policy.Policy { return greedyWrite{} }

// skipAll never writes, merges, or expires. Useful as a zero-recall,
// zero-cost baseline in comparisons.
type skipAll struct{}

func (skipAll) Select(episode.Step, policy.View) []memstore.Action { return nil }

type skipAllFactory struct{}

func (skipAllFactory) ID() string                  { return "skip-all" }
func (skipAllFactory) New(seed int64) policy.Policy { return skipAll{} }

// randomWrite writes a step with fixed probability, seeded deterministically
// per condition so repeated runs over the same condition agree (P5).
type randomWrite struct {
	rnd *rand.Rand
	p   float64
}

func (r *randomWrite) Select(step episode.Step, view policy.View) []memstore.Action {
	if view.Contains(step.T) {
		return nil
	}
	if r.rnd.Float64() < r.p {
		return []memstore.Action{memstore.WriteAction(step)}
	}
	return nil
}

type randomWriteFactory struct{ p float64 }

func (randomWriteFactory) ID() string { return "random-write" }
func (f randomWriteFactory) New(seed int64) policy.Policy {
	return &randomWrite{rnd: rand.New(rand.NewSource(seed)), p: f.p}
}

// All returns every reference policy.Factory the CLI can resolve by id.
func All() []policy.Factory {
	return []policy.Factory{
		greedyWriteFactory{},
		skipAllFactory{},
		randomWriteFactory{p: 0.5},
	}
}

// ByID resolves one reference factory, or false if id is unknown.
func ByID(id string) (policy.Factory, bool) {
	for _, f := range All() {
		if f.ID() == id {
			return f, true
		}
	}
	return nil, false
}
