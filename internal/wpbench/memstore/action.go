// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memstore

import "github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"

// ActionKind tags the variant of an Action.
type ActionKind int

const (
	Skip ActionKind = iota
	Write
	Merge
	Expire
)

func (k ActionKind) String() string {
	switch k {
	case Skip:
		return "SKIP"
	case Write:
		return "WRITE"
	case Merge:
		return "MERGE"
	case Expire:
		return "EXPIRE"
	default:
		return "UNKNOWN"
	}
}

// Action is a tagged sum of the four action variants: SKIP, WRITE(step),
// MERGE(step, target_t, delta?), EXPIRE(target_t). Modeling it this way
// rather than a struct with nullable fields collapses most of the
// validation surface onto a single Apply switch.
type Action struct {
	Kind ActionKind

	// Step is required for Write and Merge.
	Step episode.Step

	// TargetT is required for Merge and Expire.
	TargetT int

	// Delta is an optional explicit delta for Merge. If HasDelta is false,
	// the store computes the canonical delta itself.
	Delta    map[string]any
	HasDelta bool
}

// SkipAction returns the no-op action.
func SkipAction() Action { return Action{Kind: Skip} }

// WriteAction returns a WRITE of step.
func WriteAction(step episode.Step) Action {
	return Action{Kind: Write, Step: step}
}

// MergeAction returns a MERGE of step against targetT, letting the store
// compute the canonical delta.
func MergeAction(step episode.Step, targetT int) Action {
	return Action{Kind: Merge, Step: step, TargetT: targetT}
}

// MergeActionWithDelta returns a MERGE supplying an explicit delta, which
// the store validates against the canonical delta (P7).
func MergeActionWithDelta(step episode.Step, targetT int, delta map[string]any) Action {
	return Action{Kind: Merge, Step: step, TargetT: targetT, Delta: delta, HasDelta: true}
}

// ExpireAction returns an EXPIRE of targetT.
func ExpireAction(targetT int) Action {
	return Action{Kind: Expire, TargetT: targetT}
}
