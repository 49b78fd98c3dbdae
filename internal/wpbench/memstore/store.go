// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memstore

import (
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/bytesize"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/canon"
)

// Store is the budget-tracked collection of retained items. It owns action
// application and enforces invariants I1–I5. The zero value is not usable;
// construct one with NewStore.
type Store struct {
	maxBytes  int
	bytesUsed int

	items map[int]*Item
	order []int // insertion order of timesteps currently present

	// children maps a BASE timestep to the set of DELTA timesteps whose
	// merge_parent_t points at it. A backlink rather than a BASE-owned
	// child list avoids cycles: the BASE never references its children,
	// only the DELTA references its parent by value.
	children map[int]map[int]struct{}

	counters Counters
}

// Counters tallies successful/rejected actions by kind, used by the
// evaluator driver for the writes/merges/expires/skips/rejections result
// columns.
type Counters struct {
	Writes     int
	Merges     int
	Expires    int
	Skips      int
	Rejections int
}

// NewStore constructs an empty store with the given budget. maxBytes must
// be non-negative.
func NewStore(maxBytes int) *Store {
	return &Store{
		maxBytes: maxBytes,
		items:    make(map[int]*Item),
		children: make(map[int]map[int]struct{}),
	}
}

// MaxBytes returns the store's budget ceiling.
func (s *Store) MaxBytes() int { return s.maxBytes }

// BytesUsed returns bytes currently charged against the budget.
func (s *Store) BytesUsed() int { return s.bytesUsed }

// Remaining returns the number of bytes still available under the budget.
func (s *Store) Remaining() int { return s.maxBytes - s.bytesUsed }

// Counters returns a snapshot of the action tally.
func (s *Store) Counters() Counters { return s.counters }

// Contains reports whether an item currently occupies timestep t.
func (s *Store) Contains(t int) bool {
	_, ok := s.items[t]
	return ok
}

// Get returns the item at t, if present.
func (s *Store) Get(t int) (ItemView, bool) {
	item, ok := s.items[t]
	if !ok {
		return ItemView{}, false
	}
	return newItemView(t, item), true
}

// OldestItem returns the item with the earliest insertion order.
func (s *Store) OldestItem() (ItemView, bool) {
	if len(s.order) == 0 {
		return ItemView{}, false
	}
	t := s.order[0]
	return newItemView(t, s.items[t]), true
}

// Items returns a snapshot of all items in insertion order.
func (s *Store) Items() []ItemView {
	out := make([]ItemView, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, newItemView(t, s.items[t]))
	}
	return out
}

// Iter calls yield for every item in insertion order, stopping early if
// yield returns false.
func (s *Store) Iter(yield func(ItemView) bool) {
	for _, t := range s.order {
		if !yield(newItemView(t, s.items[t])) {
			return
		}
	}
}

// View returns a read-only capability over the store, suitable for handing
// to a Policy. It shares the store's item map, so it must not be retained
// past one Select call.
func (s *Store) View() View {
	return View{order: s.order, items: s.items, remaining: s.Remaining()}
}

// Apply validates and, if valid, executes action. currentT is the timestep
// of the step currently being processed by the driver; it governs EXPIRE's
// "only strictly older items may expire" rule. Apply returns true on
// success, false on rejection, and never partially mutates state on
// rejection.
func (s *Store) Apply(action Action, currentT int) bool {
	switch action.Kind {
	case Skip:
		s.counters.Skips++
		return true
	case Write:
		return s.applyWrite(action)
	case Merge:
		return s.applyMerge(action)
	case Expire:
		return s.applyExpire(action, currentT)
	default:
		s.counters.Rejections++
		return false
	}
}

func (s *Store) applyWrite(action Action) bool {
	step := action.Step
	if s.Contains(step.T) {
		s.counters.Rejections++
		return false
	}
	cost := bytesize.EstimateBytes(step)
	if cost > s.Remaining() {
		s.counters.Rejections++
		return false
	}

	s.items[step.T] = &Item{Step: step, WrittenAt: step.T, ByteCost: cost, Kind: BASE}
	s.order = append(s.order, step.T)
	s.bytesUsed += cost
	s.counters.Writes++
	return true
}

func (s *Store) applyMerge(action Action) bool {
	step := action.Step
	target, ok := s.items[action.TargetT]
	if !ok {
		s.counters.Rejections++
		return false
	}
	if target.Kind == DELTA {
		s.counters.Rejections++
		return false
	}

	targetAPI, targetHasAPI := apiValue(target.Step.Observation)
	stepAPI, stepHasAPI := apiValue(step.Observation)
	if !targetHasAPI || !stepHasAPI || !canon.Equal(targetAPI, stepAPI) {
		s.counters.Rejections++
		return false
	}

	canonical := canonicalDelta(asMap(step.Observation), asMap(target.Step.Observation))
	if len(canonical) == 0 {
		s.counters.Rejections++
		return false
	}
	if action.HasDelta && !mapsEqual(action.Delta, canonical) {
		s.counters.Rejections++
		return false
	}
	if s.Contains(step.T) {
		s.counters.Rejections++
		return false
	}

	cost := bytesize.DeltaBytes(canonical)
	if cost > s.Remaining() {
		s.counters.Rejections++
		return false
	}

	s.items[step.T] = &Item{
		Step:         step,
		WrittenAt:    step.T,
		ByteCost:     cost,
		Kind:         DELTA,
		MergeParentT: action.TargetT,
		Delta:        canonical,
	}
	s.order = append(s.order, step.T)
	s.bytesUsed += cost
	if s.children[action.TargetT] == nil {
		s.children[action.TargetT] = make(map[int]struct{})
	}
	s.children[action.TargetT][step.T] = struct{}{}
	s.counters.Merges++
	return true
}

func (s *Store) applyExpire(action Action, currentT int) bool {
	target, ok := s.items[action.TargetT]
	if !ok {
		s.counters.Rejections++
		return false
	}
	if action.TargetT >= currentT {
		s.counters.Rejections++
		return false
	}
	if target.Kind == BASE {
		if kids, ok := s.children[action.TargetT]; ok && len(kids) > 0 {
			s.counters.Rejections++
			return false
		}
	}

	delete(s.items, action.TargetT)
	s.bytesUsed -= target.ByteCost
	s.order = removeFirst(s.order, action.TargetT)
	if target.Kind == DELTA {
		if kids, ok := s.children[target.MergeParentT]; ok {
			delete(kids, action.TargetT)
			if len(kids) == 0 {
				delete(s.children, target.MergeParentT)
			}
		}
	} else {
		delete(s.children, action.TargetT)
	}
	s.counters.Expires++
	return true
}

func removeFirst(order []int, t int) []int {
	for i, v := range order {
		if v == t {
			return append(order[:i:i], order[i+1:]...)
		}
	}
	return order
}

func apiValue(observation any) (any, bool) {
	m, ok := observation.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m["api"]
	return v, ok
}

func asMap(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// canonicalDelta computes canonical_delta[k] = incoming[k] for every key k
// such that k != "api" and (k is absent from base, or base[k] != incoming[k]).
func canonicalDelta(incoming, base map[string]any) map[string]any {
	delta := make(map[string]any)
	for k, v := range incoming {
		if k == "api" {
			continue
		}
		baseV, present := base[k]
		if !present || !canon.Equal(baseV, v) {
			delta[k] = v
		}
	}
	return delta
}

func mapsEqual(a, b map[string]any) bool {
	return canon.Equal(mapAsAny(a), mapAsAny(b))
}

func mapAsAny(m map[string]any) any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
