// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package eval implements the evaluator driver: it iterates the
// episode×budget×policy×track grid, applies each condition's action
// sequence through a fresh memory store, and collects a metric row per
// condition.
package eval

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/metrics"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/telemetry"
	"github.com/edgardcham/WritePolicyBench/pkg/wplog"
)

// InvariantError reports an invariant detected broken after a successful
// Apply, a programming bug rather than a policy mistake, so it aborts the
// run rather than incrementing a rejection counter.
type InvariantError struct {
	EpisodeID string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("eval: invariant violation in episode %q: %s", e.EpisodeID, e.Detail)
}

// Grid describes the sweep a Driver.Run call covers.
type Grid struct {
	Budgets  []int
	Policies []policy.Factory
	Tracks   []policy.Track
}

// Driver runs conditions from a Grid against a set of episodes.
type Driver struct {
	Logger    *wplog.Logger
	Telemetry *telemetry.Sink

	// ActionLog, if non-nil, receives a JSONL line per applied or
	// rejected action across every condition, keyed by RunID.
	ActionLog *ActionLogger

	// Tracer is used to open one span per condition. A nil Tracer uses
	// the global no-op tracer.
	Tracer trace.Tracer

	// Parallelism bounds concurrent conditions. 0 means GOMAXPROCS.
	Parallelism int
}

// RunID is stamped on every action-log record of a Run. The ResultTable
// does not carry it.
type RunID string

// NewRunID generates a fresh run identifier.
func NewRunID() RunID { return RunID(uuid.NewString()) }

// Run iterates episodes × grid.Budgets × grid.Policies × grid.Tracks,
// running each condition in its own goroutine bounded by Parallelism (or
// GOMAXPROCS), and returns the collected ResultTable. A *InvariantError
// from any condition aborts the whole run.
func (d *Driver) Run(ctx context.Context, runID RunID, episodes []episode.Episode, grid Grid) (ResultTable, error) {
	logger := d.Logger
	if logger == nil {
		logger = wplog.Default()
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = otel.Tracer("wpbench/eval")
	}

	type job struct {
		ep      episode.Episode
		budget  int
		factory policy.Factory
		track   policy.Track
		index   int
	}

	var jobs []job
	for _, ep := range episodes {
		for _, budget := range grid.Budgets {
			for _, factory := range grid.Policies {
				for _, track := range grid.Tracks {
					jobs = append(jobs, job{ep: ep, budget: budget, factory: factory, track: track})
				}
			}
		}
	}
	for i := range jobs {
		jobs[i].index = i
	}

	results := make([]ResultRow, len(jobs))

	limit := d.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var logMu sync.Mutex

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			_, span := tracer.Start(gctx, "wpbench.condition", trace.WithAttributes(
				attribute.String("episode_id", j.ep.ID),
				attribute.Int("budget", j.budget),
				attribute.String("policy_id", j.factory.ID()),
				attribute.String("track", j.track.String()),
			))
			defer span.End()

			start := time.Now()
			row, err := d.runCondition(j.ep, j.budget, j.factory, j.track, runID, &logMu)
			duration := time.Since(start)

			if err != nil {
				return err
			}

			if d.Telemetry != nil {
				_ = d.Telemetry.RecordCondition(j.factory.ID(), j.track.String(), row.Writes, row.Merges, row.Expires, row.Skips, row.Rejections, duration)
			}
			logger.Debug("condition finished",
				"episode_id", j.ep.ID, "budget", j.budget, "policy_id", j.factory.ID(), "track", j.track.String(),
				"duration_ms", duration.Milliseconds())

			results[j.index] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ResultTable(results), nil
}

func (d *Driver) runCondition(ep episode.Episode, budget int, factory policy.Factory, track policy.Track, runID RunID, logMu *sync.Mutex) (ResultRow, error) {
	seed := policy.Seed(ep.ID, budget, factory.ID())
	p := factory.New(seed)
	store := memstore.NewStore(budget)

	for _, step := range ep.Steps {
		visible := policy.ForTrack(step, track)
		view := store.View()
		actions := p.Select(visible, view)

		for _, action := range actions {
			ok := store.Apply(action, step.T)
			if d.ActionLog != nil {
				logMu.Lock()
				d.ActionLog.Write(runID, ep.ID, budget, factory.ID(), track, step.T, action, ok)
				logMu.Unlock()
			}
		}

		if err := checkByteInvariant(store); err != nil {
			return ResultRow{}, &InvariantError{EpisodeID: ep.ID, Detail: err.Error()}
		}
	}

	row := metrics.Compute(store, ep)
	return ResultRow{
		EpisodeID: ep.ID,
		Budget:    budget,
		PolicyID:  factory.ID(),
		Track:     track.String(),
		Row:       row,
	}, nil
}

func checkByteInvariant(store *memstore.Store) error {
	sum := 0
	for _, item := range store.Items() {
		sum += item.ByteCost
	}
	if sum != store.BytesUsed() {
		return fmt.Errorf("sum(byte_cost)=%d != bytes_used=%d", sum, store.BytesUsed())
	}
	if store.BytesUsed() > store.MaxBytes() {
		return fmt.Errorf("bytes_used=%d exceeds max_bytes=%d", store.BytesUsed(), store.MaxBytes())
	}
	return nil
}
