// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memstore implements the byte-budgeted memory store: the
// collection of retained items, the SKIP/WRITE/MERGE/EXPIRE action
// protocol, and the invariants coupling merge deltas to their base parents.
package memstore

import "github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"

// Kind distinguishes a full stored step (BASE) from a partial update tied
// to a base parent (DELTA).
type Kind int

const (
	BASE Kind = iota
	DELTA
)

func (k Kind) String() string {
	if k == BASE {
		return "BASE"
	}
	return "DELTA"
}

// Item is a retained memory entry. It is never mutated after creation: a
// MERGE against it produces a new DELTA item, not an edit of this one.
type Item struct {
	Step         episode.Step
	WrittenAt    int
	ByteCost     int
	Kind         Kind
	MergeParentT int            // valid only when Kind == DELTA
	Delta        map[string]any // valid only when Kind == DELTA; the canonical delta
}

// ItemView is the read-only projection of an Item exposed to policies and
// to metric computation. It holds no *Item pointer, but its Step and Delta
// share their maps with the stored item, so they are for reading only.
type ItemView struct {
	T            int
	Kind         Kind
	WrittenAt    int
	ByteCost     int
	MergeParentT int
	HasParent    bool
	Step         episode.Step
	Delta        map[string]any
}

func newItemView(t int, item *Item) ItemView {
	return ItemView{
		T:            t,
		Kind:         item.Kind,
		WrittenAt:    item.WrittenAt,
		ByteCost:     item.ByteCost,
		MergeParentT: item.MergeParentT,
		HasParent:    item.Kind == DELTA,
		Step:         item.Step,
		Delta:        item.Delta,
	}
}
