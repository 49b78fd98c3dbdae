// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
)

func TestSeed_Deterministic(t *testing.T) {
	a := Seed("ep1", 1024, "greedy")
	b := Seed("ep1", 1024, "greedy")
	assert.Equal(t, a, b, "Seed should be deterministic")
}

func TestSeed_VariesWithCondition(t *testing.T) {
	base := Seed("ep1", 1024, "greedy")
	assert.NotEqual(t, base, Seed("ep2", 1024, "greedy"), "Seed should vary with episode id")
	assert.NotEqual(t, base, Seed("ep1", 2048, "greedy"), "Seed should vary with budget")
	assert.NotEqual(t, base, Seed("ep1", 1024, "oracle"), "Seed should vary with policy id")
}

func TestForTrack_PrivilegedPassesThrough(t *testing.T) {
	step := episode.Step{T: 0, Metadata: map[string]any{"priority": 0.8, "source": "sensor"}}
	got := ForTrack(step, Privileged)
	assert.Equal(t, 0.8, got.Metadata["priority"])
}

func TestForTrack_UnprivilegedStripsByDefault(t *testing.T) {
	savedAllowed := AllowedMetadataKeys
	AllowedMetadataKeys = nil
	defer func() { AllowedMetadataKeys = savedAllowed }()

	step := episode.Step{T: 0, Metadata: map[string]any{"priority": 0.8}}
	got := ForTrack(step, Unprivileged)
	assert.Empty(t, got.Metadata, "unprivileged track should strip all metadata by default")
}

func TestStripMetadata_KeepsOnlyAllowed(t *testing.T) {
	step := episode.Step{T: 0, Metadata: map[string]any{"priority": 0.8, "source": "sensor"}}
	got := StripMetadata(step, []string{"source"})
	assert.Equal(t, map[string]any{"source": "sensor"}, got.Metadata)

	_, ok := got.Metadata["priority"]
	assert.False(t, ok, "priority should have been stripped")
}
