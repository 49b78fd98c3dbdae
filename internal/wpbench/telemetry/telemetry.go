// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telemetry records per-condition counters and timings with
// Prometheus client types, but never starts an HTTP listener: metrics are
// gathered into a local registry and written to a file in exposition
// format, consistent with the no-network-I/O requirement.
package telemetry

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// ErrSinkClosed is returned by any recording method after Close.
var ErrSinkClosed = errors.New("telemetry: sink is closed")

// Config configures the local-only Prometheus registry.
type Config struct {
	// Namespace/Subsystem prefix every metric name.
	Namespace string
	Subsystem string

	// DurationBuckets bounds the condition-duration histogram, in seconds.
	// Nil selects a default spanning microseconds to tens of seconds.
	DurationBuckets []float64

	// MaxLabelCardinality caps distinct values of the policy label before
	// new values collapse to "_other", bounding metric cardinality when
	// policy ids are unbounded. The track label is not capped.
	MaxLabelCardinality int
}

func (c Config) withDefaults() Config {
	if c.Namespace == "" {
		c.Namespace = "wpbench"
	}
	if c.Subsystem == "" {
		c.Subsystem = "eval"
	}
	if c.DurationBuckets == nil {
		c.DurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}
	}
	if c.MaxLabelCardinality <= 0 {
		c.MaxLabelCardinality = 1000
	}
	return c
}

// Sink collects action-tally and duration telemetry for each evaluated
// condition and exposes it as a local Prometheus registry.
type Sink struct {
	config   Config
	registry *prometheus.Registry

	writes      *prometheus.CounterVec
	merges      *prometheus.CounterVec
	expires     *prometheus.CounterVec
	skips       *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	conditionDur *prometheus.HistogramVec

	mu     sync.RWMutex
	closed bool

	labelMu        sync.Mutex
	seenPolicy     map[string]struct{}
	maxCardinality int
}

// NewSink constructs a Sink with its own private registry (never the
// package-level prometheus.DefaultRegisterer), so nothing in this process
// incidentally exposes an HTTP scrape endpoint.
func NewSink(config Config) *Sink {
	cfg := config.withDefaults()
	registry := prometheus.NewRegistry()

	s := &Sink{
		config:         cfg,
		registry:       registry,
		seenPolicy:     make(map[string]struct{}),
		maxCardinality: cfg.MaxLabelCardinality,
	}

	labels := []string{"policy", "track"}
	s.writes = s.counter(registry, "writes_total", "Total successful WRITE actions", labels)
	s.merges = s.counter(registry, "merges_total", "Total successful MERGE actions", labels)
	s.expires = s.counter(registry, "expires_total", "Total successful EXPIRE actions", labels)
	s.skips = s.counter(registry, "skips_total", "Total SKIP actions", labels)
	s.rejections = s.counter(registry, "rejections_total", "Total rejected actions", labels)

	s.conditionDur = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "condition_duration_seconds",
		Help:      "Wall-clock duration of one (episode, budget, policy, track) condition",
		Buckets:   cfg.DurationBuckets,
	}, labels)
	registry.MustRegister(s.conditionDur)

	return s
}

func (s *Sink) counter(registry *prometheus.Registry, name, help string, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: s.config.Namespace,
		Subsystem: s.config.Subsystem,
		Name:      name,
		Help:      help,
	}, labels)
	registry.MustRegister(c)
	return c
}

// RecordCondition records one condition's action tally and duration.
func (s *Sink) RecordCondition(policyID string, track string, writes, merges, expires, skips, rejections int, duration time.Duration) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSinkClosed
	}

	policy := s.sanitizePolicy(policyID)
	s.writes.WithLabelValues(policy, track).Add(float64(writes))
	s.merges.WithLabelValues(policy, track).Add(float64(merges))
	s.expires.WithLabelValues(policy, track).Add(float64(expires))
	s.skips.WithLabelValues(policy, track).Add(float64(skips))
	s.rejections.WithLabelValues(policy, track).Add(float64(rejections))
	s.conditionDur.WithLabelValues(policy, track).Observe(duration.Seconds())
	return nil
}

// sanitizePolicy protects against unbounded label cardinality from a
// misbehaving policy factory emitting many distinct IDs.
func (s *Sink) sanitizePolicy(policyID string) string {
	s.labelMu.Lock()
	defer s.labelMu.Unlock()
	if _, ok := s.seenPolicy[policyID]; ok {
		return policyID
	}
	if len(s.seenPolicy) >= s.maxCardinality {
		return "_other"
	}
	s.seenPolicy[policyID] = struct{}{}
	return policyID
}

// WriteExposition writes the registry's current state in Prometheus text
// exposition format to w. This is the only way metrics leave the process:
// no HTTP listener is ever started.
func (s *Sink) WriteExposition(w io.Writer) error {
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the sink closed. Idempotent.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
