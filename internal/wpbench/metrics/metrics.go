// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package metrics computes the scoring record for a finished condition:
// recall, precision, f1, utility-per-KB, clamped regret against the
// WRITE-only oracle, staleness, drift coverage, expire rate, utilization,
// and write density, following a fixed set of edge-case conventions for
// empty numerators and denominators.
package metrics

import (
	"math"
	"sort"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/memstore"
)

// Row is one results-table record: the fixed-order metric columns plus the
// action counters.
type Row struct {
	Recall        float64
	Precision     float64
	F1            float64
	UtilityPerKB  float64
	Regret        float64
	AvgStaleness  float64
	DriftCoverage float64
	ExpireRate    float64
	Utilization   float64
	WriteDensity  float64
	BytesUsed     int
	Writes        int
	Merges        int
	Expires       int
	Skips         int
	Rejections    int
}

// Compute scores a finished store against an episode's ground truth. store
// must be the final state after every step of ep has been applied.
func Compute(store *memstore.Store, ep episode.Episode) Row {
	items := store.Items()
	w := make(map[int]struct{}, len(items))
	for _, item := range items {
		w[item.T] = struct{}{}
	}

	r := ep.Labels.CriticalSteps
	intersectWR := intersectionSize(w, r)

	counters := store.Counters()
	row := Row{
		BytesUsed:  store.BytesUsed(),
		Writes:     counters.Writes,
		Merges:     counters.Merges,
		Expires:    counters.Expires,
		Skips:      counters.Skips,
		Rejections: counters.Rejections,
	}

	row.Recall = recall(intersectWR, len(r), len(w))
	row.Precision = precision(intersectWR, len(w), len(r))
	row.F1 = f1(row.Precision, row.Recall)

	writtenT := make([]int, 0, len(w))
	for t := range w {
		writtenT = append(writtenT, t)
	}
	sort.Ints(writtenT)

	utilityW := 0.0
	for _, t := range writtenT {
		utilityW += ep.Labels.Utility(t)
	}
	row.UtilityPerKB = utilityPerKB(utilityW, row.BytesUsed)

	oracleUtility := Oracle(ep.Steps, store.MaxBytes(), ep.Labels.Utility)
	row.Regret = math.Max(0, oracleUtility-utilityW)

	row.AvgStaleness = avgStaleness(w, lastStepT(ep))
	row.DriftCoverage = driftCoverage(intersectionSize(w, r), ep.Labels.TotalDriftEvents)
	row.ExpireRate = float64(counters.Expires) / float64(max(1, counters.Writes))
	row.Utilization = utilization(store.BytesUsed(), store.MaxBytes())
	row.WriteDensity = float64(len(w)) / float64(max(1, len(ep.Steps)))

	return row
}

func intersectionSize(w, r map[int]struct{}) int {
	n := 0
	for t := range w {
		if _, ok := r[t]; ok {
			n++
		}
	}
	return n
}

func recall(intersect, rSize, wSize int) float64 {
	if rSize == 0 {
		if wSize == 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(intersect) / float64(rSize)
}

func precision(intersect, wSize, rSize int) float64 {
	if wSize == 0 {
		if rSize == 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(intersect) / float64(wSize)
}

func f1(precision, recall float64) float64 {
	if precision == 0 || recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

func utilityPerKB(utility float64, bytesUsed int) float64 {
	if bytesUsed == 0 {
		return 0
	}
	return utility / (float64(bytesUsed) / 1024.0)
}

func avgStaleness(w map[int]struct{}, lastStepT int) float64 {
	if len(w) == 0 {
		return 0
	}
	sum := 0
	for t := range w {
		sum += lastStepT - t
	}
	return float64(sum) / float64(len(w))
}

func driftCoverage(intersectWithCritical, totalDriftEvents int) float64 {
	if totalDriftEvents == 0 {
		return 0
	}
	return float64(intersectWithCritical) / float64(totalDriftEvents)
}

func utilization(bytesUsed, maxBytes int) float64 {
	if maxBytes == 0 {
		return 0
	}
	return float64(bytesUsed) / float64(maxBytes)
}

func lastStepT(ep episode.Episode) int {
	if len(ep.Steps) == 0 {
		return 0
	}
	return ep.Steps[len(ep.Steps)-1].T
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
