// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package eval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
)

// greedyWritePolicy writes every step that fits and never merges or
// expires. It is monotonic by construction: a larger budget can only admit
// a superset of the writes a smaller budget admits, since per-step costs
// are identical and remaining capacity only grows.
type greedyWritePolicy struct{}

func (greedyWritePolicy) Select(step episode.Step, view policy.View) []memstore.Action {
	if view.Contains(step.T) {
		return nil
	}
	return []memstore.Action{memstore.WriteAction(step)}
}

type greedyWriteFactory struct{}

func (greedyWriteFactory) ID() string                  { return "greedy-write" }
func (greedyWriteFactory) New(seed int64) policy.Policy { return greedyWritePolicy{} }

func obs(api string, v float64) map[string]any {
	return map[string]any{"api": api, "v": v}
}

func sampleEpisode() episode.Episode {
	return episode.Episode{
		ID: "ep1",
		Steps: []episode.Step{
			{T: 0, Observation: obs("x", 1), Metadata: map[string]any{}},
			{T: 1, Observation: obs("x", 2), Metadata: map[string]any{}},
			{T: 2, Observation: obs("x", 3), Metadata: map[string]any{}},
		},
		Labels: episode.Labels{
			CriticalSteps:    map[int]struct{}{0: {}, 2: {}},
			TotalDriftEvents: 2,
		},
	}
}

func TestDriverRun_BasicCondition(t *testing.T) {
	driver := &Driver{}
	grid := Grid{
		Budgets:  []int{1024},
		Policies: []policy.Factory{greedyWriteFactory{}},
		Tracks:   []policy.Track{policy.Privileged},
	}

	table, err := driver.Run(context.Background(), NewRunID(), []episode.Episode{sampleEpisode()}, grid)
	require.NoError(t, err)
	require.Len(t, table, 1)

	row := table[0]
	assert.Equal(t, "ep1", row.EpisodeID)
	assert.Equal(t, 1024, row.Budget)
	assert.Equal(t, "greedy-write", row.PolicyID)
	assert.Equal(t, 3, row.Row.Writes, "expected all 3 steps written")
	assert.Equal(t, 1.0, row.Row.Recall, "expected recall 1.0 with all critical steps retained")
}

// P5: identical (episode, budget, policy, seed) runs produce byte-identical
// results tables.
func TestDriverRun_DeterministicAcrossRuns(t *testing.T) {
	driver := &Driver{}
	grid := Grid{
		Budgets:  []int{500},
		Policies: []policy.Factory{greedyWriteFactory{}},
		Tracks:   []policy.Track{policy.Privileged, policy.Unprivileged},
	}
	episodes := []episode.Episode{sampleEpisode()}

	table1, err := driver.Run(context.Background(), RunID("fixed-run-id"), episodes, grid)
	require.NoError(t, err)
	table2, err := driver.Run(context.Background(), RunID("fixed-run-id"), episodes, grid)
	require.NoError(t, err)

	var buf1, buf2 bytes.Buffer
	require.NoError(t, table1.WriteJSONL(&buf1))
	require.NoError(t, table2.WriteJSONL(&buf2))
	assert.Equal(t, buf1.String(), buf2.String(), "runs over the same condition were not byte-identical")
}

func TestAssertMonotonicRecall_GreedyPolicyIsMonotonic(t *testing.T) {
	ep := sampleEpisode()
	err := AssertMonotonicRecall(greedyWriteFactory{}, ep, []int{0, 50, 100, 1024, 10240}, policy.Privileged)
	assert.NoError(t, err, "expected greedy-write policy to be monotonic")
}

func TestResultTable_WriteCSV_HasFixedColumns(t *testing.T) {
	driver := &Driver{}
	grid := Grid{
		Budgets:  []int{1024},
		Policies: []policy.Factory{greedyWriteFactory{}},
		Tracks:   []policy.Track{policy.Privileged},
	}
	table, err := driver.Run(context.Background(), NewRunID(), []episode.Episode{sampleEpisode()}, grid)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	want := "episode_id,budget,policy_id,track,recall,precision,f1,utility_per_kb,regret,avg_staleness,drift_coverage,expire_rate,utilization,write_density,bytes_used,writes,merges,expires,skips,rejections"
	assert.Equal(t, want, header)
}

func TestActionLogger_WritesJSONLPerAction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewActionLogger(&buf)
	step := episode.Step{T: 0, Observation: obs("x", 1), Metadata: map[string]any{}}
	logger.Write("run1", "ep1", 1024, "greedy-write", policy.Privileged, 0, memstore.WriteAction(step), true)

	out := buf.String()
	assert.Contains(t, out, `"accepted":true`)
	assert.Contains(t, out, `"episode_id":"ep1"`)
}
