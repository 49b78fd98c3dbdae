// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package eval

import (
	"fmt"
	"io"
	"sync"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/canon"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
)

// ActionLogger streams a JSONL record per applied or rejected action across
// every condition in a run, keyed by the run's id. It is a flat serialized
// stream, not a database, consistent with the "no persistence beyond a
// flat serialized stream" non-goal.
type ActionLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewActionLogger wraps w for per-action JSONL export.
func NewActionLogger(w io.Writer) *ActionLogger {
	return &ActionLogger{w: w}
}

// Write appends one action record. Safe for concurrent use, though callers
// in this package already serialize access with their own mutex to keep
// record order close to emission order per condition.
func (l *ActionLogger) Write(runID RunID, episodeID string, budget int, policyID string, track policy.Track, t int, action memstore.Action, accepted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := map[string]any{
		"run_id":     string(runID),
		"episode_id": episodeID,
		"budget":     float64(budget),
		"policy_id":  policyID,
		"track":      track.String(),
		"t":          float64(t),
		"action":     action.Kind.String(),
		"accepted":   accepted,
	}
	switch action.Kind {
	case memstore.Write:
		record["step_t"] = float64(action.Step.T)
	case memstore.Merge:
		record["step_t"] = float64(action.Step.T)
		record["target_t"] = float64(action.TargetT)
	case memstore.Expire:
		record["target_t"] = float64(action.TargetT)
	}

	line := canon.Encode(record)
	fmt.Fprintln(l.w, line)
}
