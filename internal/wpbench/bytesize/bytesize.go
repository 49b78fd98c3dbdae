// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package bytesize implements the deterministic byte-accounting rules used
// to charge episode steps and merge deltas against a memory budget.
package bytesize

import "github.com/edgardcham/WritePolicyBench/internal/wpbench/canon"

// HeaderBytes is the fixed per-item overhead charged on every WRITE, on top
// of the canonically encoded observation and metadata.
const HeaderBytes = 32

// MergeOverheadBytes is the fixed per-delta overhead charged on every
// MERGE, on top of the canonically encoded delta.
const MergeOverheadBytes = 16

// Step is the minimal shape EstimateBytes needs: an observation and
// metadata payload. episode.Step satisfies this.
type Step interface {
	ObservationValue() any
	MetadataValue() any
}

// EstimateBytes computes the exact byte cost of writing step as a BASE
// item: the canonical encoding of its observation and metadata, summed,
// plus HeaderBytes. The result is stable across runs and platforms because
// canon.Encode pins key order and whitespace.
func EstimateBytes(step Step) int {
	observation := canon.Encode(step.ObservationValue())
	metadata := canon.Encode(step.MetadataValue())
	return len(observation) + len(metadata) + HeaderBytes
}

// DeltaBytes computes the exact byte cost of a MERGE's canonical delta
// mapping: its canonical encoding plus MergeOverheadBytes.
func DeltaBytes(delta map[string]any) int {
	return len(canon.Encode(delta)) + MergeOverheadBytes
}
