// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/edgardcham/WritePolicyBench/internal/wpbench/config"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/episode"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/eval"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/policy"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/refpolicy"
	"github.com/edgardcham/WritePolicyBench/internal/wpbench/telemetry"
	"github.com/edgardcham/WritePolicyBench/pkg/wplog"
)

var (
	flagConfigPath string
	flagTraceOut   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evaluation grid described by a config file",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagConfigPath, "config", "", "path to a run config YAML file (required)")
	runCmd.Flags().StringVar(&flagTraceOut, "trace-out", "", "write OpenTelemetry spans as JSON lines to this path (empty disables tracing)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	start := time.Now()

	logger := wplog.New(wplog.Config{
		Level:   parseLogLevel(flagLogLevel),
		LogDir:  flagLogDir,
		Service: "wpbench",
		Quiet:   flagQuiet,
	})
	defer logger.Close()

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		printError("loading config", err)
		os.Exit(ExitMalformedEpisode)
	}

	manifest, err := episode.LoadManifest(cfg.ManifestPath)
	if err != nil {
		printError("loading manifest", err)
		os.Exit(ExitManifestMismatch)
	}

	episodes, err := episode.LoadVerifiedStream(manifest, cfg.EpisodeSet)
	if err != nil {
		var mismatch *episode.ManifestMismatchError
		if errors.As(err, &mismatch) {
			printError("episode set failed manifest verification", err)
			os.Exit(ExitManifestMismatch)
		}
		printError("loading episode set", err)
		os.Exit(ExitMalformedEpisode)
	}
	logger.Info("episode set loaded", "episode_set", cfg.EpisodeSet, "count", len(episodes))

	grid, err := buildGrid(cfg)
	if err != nil {
		printError("building evaluation grid", err)
		os.Exit(ExitMalformedEpisode)
	}
	printMuted(fmt.Sprintf("evaluating %d episodes x %d budgets x %d policies x %d tracks",
		len(episodes), len(grid.Budgets), len(grid.Policies), len(grid.Tracks)))

	sink := telemetry.NewSink(telemetry.Config{Namespace: "wpbench"})
	defer sink.Close()

	tracerProvider, shutdown, err := buildTracerProvider(flagTraceOut)
	if err != nil {
		printError("setting up tracing", err)
		os.Exit(ExitMalformedEpisode)
	}
	defer shutdown(context.Background())

	driver := &eval.Driver{
		Logger:      logger,
		Telemetry:   sink,
		Tracer:      tracerProvider.Tracer("wpbench/cli"),
		Parallelism: cfg.Parallelism,
	}

	if cfg.ActionLogDir != "" {
		if err := os.MkdirAll(cfg.ActionLogDir, 0o755); err != nil {
			printError("creating action log directory", err)
			os.Exit(ExitMalformedEpisode)
		}
		f, err := os.Create(filepath.Join(cfg.ActionLogDir, string(eval.NewRunID())+".jsonl"))
		if err != nil {
			printError("creating action log file", err)
			os.Exit(ExitMalformedEpisode)
		}
		defer f.Close()
		driver.ActionLog = eval.NewActionLogger(f)
	}

	runID := eval.NewRunID()
	table, err := driver.Run(context.Background(), runID, episodes, grid)
	if err != nil {
		var invErr *eval.InvariantError
		if errors.As(err, &invErr) {
			printError("invariant violation", err)
			os.Exit(ExitInvariantViolation)
		}
		printError("running evaluation", err)
		os.Exit(ExitMalformedEpisode)
	}
	if len(table) == 0 {
		printWarning("the evaluation grid produced zero result rows; check episode_set, policy_ids, and tracks")
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		printError("creating output file", err)
		os.Exit(ExitMalformedEpisode)
	}
	defer out.Close()

	switch cfg.OutputFormat {
	case "jsonl":
		err = table.WriteJSONL(out)
	default:
		err = table.WriteCSV(out)
	}
	if err != nil {
		printError("writing results", err)
		os.Exit(ExitMalformedEpisode)
	}

	if cfg.MetricsPath != "" {
		mf, err := os.Create(cfg.MetricsPath)
		if err != nil {
			printError("creating metrics file", err)
			os.Exit(ExitMalformedEpisode)
		}
		defer mf.Close()
		if err := sink.WriteExposition(mf); err != nil {
			printError("writing metrics", err)
			os.Exit(ExitMalformedEpisode)
		}
	}

	printOK(fmt.Sprintf("wrote %d result rows to %s in %s", len(table), cfg.OutputPath, time.Since(start).Round(time.Millisecond)))
	return nil
}

func buildGrid(cfg *config.RunConfig) (eval.Grid, error) {
	var factories []policy.Factory
	for _, id := range cfg.PolicyIDs {
		f, ok := refpolicy.ByID(id)
		if !ok {
			return eval.Grid{}, fmt.Errorf("unknown policy id %q", id)
		}
		factories = append(factories, f)
	}

	var tracks []policy.Track
	for _, t := range cfg.Tracks {
		switch t {
		case "privileged":
			tracks = append(tracks, policy.Privileged)
		case "unprivileged":
			tracks = append(tracks, policy.Unprivileged)
		default:
			return eval.Grid{}, fmt.Errorf("unknown track %q", t)
		}
	}

	return eval.Grid{Budgets: cfg.BudgetGrid, Policies: factories, Tracks: tracks}, nil
}

func buildTracerProvider(traceOut string) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	if traceOut == "" {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Shutdown, nil
	}

	f, err := os.Create(traceOut)
	if err != nil {
		return nil, nil, fmt.Errorf("creating trace output file: %w", err)
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f), stdouttrace.WithoutTimestamps())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	return tp, func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		f.Close()
		return err
	}, nil
}

func parseLogLevel(s string) wplog.Level {
	switch s {
	case "debug":
		return wplog.LevelDebug
	case "warn":
		return wplog.LevelWarn
	case "error":
		return wplog.LevelError
	default:
		return wplog.LevelInfo
	}
}
