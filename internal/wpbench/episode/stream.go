// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package episode

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/canon"
)

// rawStep/rawLabels/rawEpisode mirror the on-disk line-delimited JSON wire
// shape. They exist only as a decode target: encoding/json is fine for parsing an
// externally supplied stream, since no byte-accounting decision depends on
// decode order. Only the re-serialization path (SaveStream) must use the
// pinned canonical encoder.
type rawStep struct {
	T           int            `json:"t"`
	Observation any            `json:"observation"`
	Metadata    map[string]any `json:"metadata"`
}

type rawLabels struct {
	CriticalSteps    []int              `json:"critical_steps"`
	TotalDriftEvents int                `json:"total_drift_events"`
	PerStepUtility   map[string]float64 `json:"per_step_utility,omitempty"`
}

type rawEpisode struct {
	ID     string    `json:"id"`
	Steps  []rawStep `json:"steps"`
	Labels rawLabels `json:"labels"`
}

// LoadStream reads one JSON-encoded episode per line. A malformed record at
// zero-based index k fails the whole load: the function returns
// (nil, *LoadError), not the k episodes parsed before it, per the "no partial loads"
// requirement.
func LoadStream(r io.Reader) ([]Episode, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var episodes []Episode
	index := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			index++
			continue
		}

		var raw rawEpisode
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, &LoadError{Index: index, Err: err}
		}

		ep := fromRaw(raw)
		if err := ep.Validate(); err != nil {
			return nil, &LoadError{Index: index, Err: err}
		}

		episodes = append(episodes, ep)
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Index: index, Err: err}
	}
	return episodes, nil
}

func fromRaw(raw rawEpisode) Episode {
	steps := make([]Step, len(raw.Steps))
	for i, rs := range raw.Steps {
		steps[i] = Step{T: rs.T, Observation: rs.Observation, Metadata: rs.Metadata}
	}

	critical := make(map[int]struct{}, len(raw.Labels.CriticalSteps))
	for _, t := range raw.Labels.CriticalSteps {
		critical[t] = struct{}{}
	}

	var perStep map[int]float64
	hasPerStep := raw.Labels.PerStepUtility != nil
	if hasPerStep {
		perStep = make(map[int]float64, len(raw.Labels.PerStepUtility))
		for k, v := range raw.Labels.PerStepUtility {
			var t int
			if _, err := fmt.Sscanf(k, "%d", &t); err == nil {
				perStep[t] = v
			}
		}
	}

	return Episode{
		ID:    raw.ID,
		Steps: steps,
		Labels: Labels{
			CriticalSteps:     critical,
			TotalDriftEvents:  raw.Labels.TotalDriftEvents,
			PerStepUtility:    perStep,
			HasPerStepUtility: hasPerStep,
		},
	}
}

// SaveStream writes episodes back as line-delimited canonical JSON, one per
// line, using the same canonical encoder as byte accounting so a round trip
// through bytes reproduces a structurally equal episode list (P4).
func SaveStream(w io.Writer, episodes []Episode) error {
	for _, ep := range episodes {
		line := canon.Encode(toCanonicalValue(ep))
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

func toCanonicalValue(ep Episode) any {
	steps := make([]any, len(ep.Steps))
	for i, s := range ep.Steps {
		meta := s.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		steps[i] = map[string]any{
			"t":           float64(s.T),
			"observation": s.Observation,
			"metadata":    anyMap(meta),
		}
	}

	critical := make([]int, 0, len(ep.Labels.CriticalSteps))
	for t := range ep.Labels.CriticalSteps {
		critical = append(critical, t)
	}
	sort.Ints(critical)
	criticalAny := make([]any, len(critical))
	for i, t := range critical {
		criticalAny[i] = float64(t)
	}

	labels := map[string]any{
		"critical_steps":     criticalAny,
		"total_drift_events": float64(ep.Labels.TotalDriftEvents),
	}
	if ep.Labels.HasPerStepUtility {
		util := map[string]any{}
		for t, v := range ep.Labels.PerStepUtility {
			util[fmt.Sprintf("%d", t)] = v
		}
		labels["per_step_utility"] = util
	}

	return map[string]any{
		"id":     ep.ID,
		"steps":  steps,
		"labels": labels,
	}
}

func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// ManifestEntry describes one frozen episode-set file: its path, content
// hash, and expected record count.
type ManifestEntry struct {
	Path  string `yaml:"path" json:"path"`
	SHA256 string `yaml:"sha256" json:"sha256"`
	Count int    `yaml:"count" json:"count"`
}

// Manifest maps logical episode-set names to their frozen entry.
type Manifest map[string]ManifestEntry

// ManifestMismatchError reports that the content hash or record count of a
// loaded stream does not match its manifest entry.
type ManifestMismatchError struct {
	Name     string
	Expected ManifestEntry
	GotHash  string
	GotCount int
}

func (e *ManifestMismatchError) Error() string {
	return fmt.Sprintf("manifest mismatch for %q: expected sha256=%s count=%d, got sha256=%s count=%d",
		e.Name, e.Expected.SHA256, e.Expected.Count, e.GotHash, e.GotCount)
}

// VerifyManifest hashes raw and checks it against entry, returning a
// *ManifestMismatchError on any discrepancy. count is the number of
// episodes decoded from raw (by the caller, via LoadStream).
func VerifyManifest(name string, entry ManifestEntry, raw []byte, count int) error {
	sum := sha256.Sum256(raw)
	gotHash := hex.EncodeToString(sum[:])
	if gotHash != entry.SHA256 || count != entry.Count {
		return &ManifestMismatchError{Name: name, Expected: entry, GotHash: gotHash, GotCount: count}
	}
	return nil
}
