// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package policy defines the contract a write policy implements, and the
// read-only capability it is given over the memory store. The evaluator
// does not know a policy's internals; it only calls Select.
package policy

import (
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
)

// View is the read-only capability a Policy receives instead of the store
// itself. It is satisfied structurally by memstore.View; this package does
// not import memstore's Store, only its value types, so a policy can never
// reach a mutator.
type View interface {
	Remaining() int
	Contains(t int) bool
	OldestItem() (memstore.ItemView, bool)
	Iter(yield func(memstore.ItemView) bool)
}

// Policy is a stateful object constructed fresh per (episode, budget,
// track) condition. Select may return zero, one, or many actions for a
// step; the driver applies them in order and never retries a rejected one
// on the policy's behalf.
type Policy interface {
	Select(step episode.Step, view View) []memstore.Action
}

// Factory constructs a fresh Policy instance for one condition, seeded
// deterministically so randomized policies are reproducible.
type Factory interface {
	ID() string
	New(seed int64) Policy
}

// Track governs whether a policy may observe the priority signal in a
// step's metadata.
type Track int

const (
	Privileged Track = iota
	Unprivileged
)

func (t Track) String() string {
	if t == Privileged {
		return "privileged"
	}
	return "unprivileged"
}

// AllowedMetadataKeys lists the metadata keys visible to an Unprivileged
// policy. The zero value (nil) strips every key.
var AllowedMetadataKeys []string

// StripMetadata returns a copy of step with metadata reduced to
// AllowedMetadataKeys, for the Unprivileged track. The Privileged track
// passes step through untouched, including step.Metadata["priority"].
func StripMetadata(step episode.Step, allowed []string) episode.Step {
	if len(allowed) == 0 {
		step.Metadata = map[string]any{}
		return step
	}
	allow := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allow[k] = struct{}{}
	}
	filtered := make(map[string]any, len(allowed))
	for k, v := range step.Metadata {
		if _, ok := allow[k]; ok {
			filtered[k] = v
		}
	}
	step.Metadata = filtered
	return step
}

// ForTrack applies the track's visibility rule to step before it reaches a
// Policy's Select.
func ForTrack(step episode.Step, track Track) episode.Step {
	if track == Privileged {
		return step
	}
	return StripMetadata(step, AllowedMetadataKeys)
}
