// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package eval

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/canon"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/metrics"
)

// ResultRow is one tabular record: (episode id, budget, policy id, track)
// plus the metric columns. Field ordering is fixed.
type ResultRow struct {
	EpisodeID string
	Budget    int
	PolicyID  string
	Track     string
	Row       metrics.Row
}

// ResultTable is the full results output for a Driver.Run call.
type ResultTable []ResultRow

var columns = []string{
	"episode_id", "budget", "policy_id", "track",
	"recall", "precision", "f1", "utility_per_kb", "regret",
	"avg_staleness", "drift_coverage", "expire_rate", "utilization", "write_density",
	"bytes_used", "writes", "merges", "expires", "skips", "rejections",
}

func (r ResultRow) fields() []string {
	m := r.Row
	return []string{
		r.EpisodeID,
		fmt.Sprintf("%d", r.Budget),
		r.PolicyID,
		r.Track,
		formatFloat(m.Recall),
		formatFloat(m.Precision),
		formatFloat(m.F1),
		formatFloat(m.UtilityPerKB),
		formatFloat(m.Regret),
		formatFloat(m.AvgStaleness),
		formatFloat(m.DriftCoverage),
		formatFloat(m.ExpireRate),
		formatFloat(m.Utilization),
		formatFloat(m.WriteDensity),
		fmt.Sprintf("%d", m.BytesUsed),
		fmt.Sprintf("%d", m.Writes),
		fmt.Sprintf("%d", m.Merges),
		fmt.Sprintf("%d", m.Expires),
		fmt.Sprintf("%d", m.Skips),
		fmt.Sprintf("%d", m.Rejections),
	}
}

// formatFloat renders a metric value with fixed precision,
// locale-independently.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.6f", f)
}

// WriteCSV writes the table as column-fixed CSV with a header row.
func (t ResultTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, row := range t {
		if err := cw.Write(row.fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes the table as one canonically encoded JSON object per
// line, using the same canonical encoder as byte accounting so results are
// byte-identical across identical runs (P5).
func (t ResultTable) WriteJSONL(w io.Writer) error {
	for _, row := range t {
		value := map[string]any{
			"episode_id":     row.EpisodeID,
			"budget":         float64(row.Budget),
			"policy_id":      row.PolicyID,
			"track":          row.Track,
			"recall":         row.Row.Recall,
			"precision":      row.Row.Precision,
			"f1":             row.Row.F1,
			"utility_per_kb": row.Row.UtilityPerKB,
			"regret":         row.Row.Regret,
			"avg_staleness":  row.Row.AvgStaleness,
			"drift_coverage": row.Row.DriftCoverage,
			"expire_rate":    row.Row.ExpireRate,
			"utilization":    row.Row.Utilization,
			"write_density":  row.Row.WriteDensity,
			"bytes_used":     float64(row.Row.BytesUsed),
			"writes":         float64(row.Row.Writes),
			"merges":         float64(row.Row.Merges),
			"expires":        float64(row.Row.Expires),
			"skips":          float64(row.Row.Skips),
			"rejections":     float64(row.Row.Rejections),
		}
		if _, err := io.WriteString(w, canon.Encode(value)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
