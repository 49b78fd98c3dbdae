// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the run configuration for an
// evaluator invocation: which manifest to read, which budget grid and
// policies to run, which tracks to cover, and where to write results.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultBudgetGrid is the byte-budget sweep used when a RunConfig omits
// one.
var DefaultBudgetGrid = []int{1024, 10240, 102400, 1048576}

// RunConfig is the YAML-backed description of one evaluator invocation.
type RunConfig struct {
	ManifestPath string   `yaml:"manifest_path" validate:"required"`
	EpisodeSet   string   `yaml:"episode_set" validate:"required"`
	BudgetGrid   []int    `yaml:"budget_grid" validate:"omitempty,dive,min=0"`
	PolicyIDs    []string `yaml:"policy_ids" validate:"required,min=1,dive,required"`
	Tracks       []string `yaml:"tracks" validate:"omitempty,dive,oneof=privileged unprivileged"`
	OutputPath   string   `yaml:"output_path" validate:"required"`
	OutputFormat string   `yaml:"output_format" validate:"omitempty,oneof=csv jsonl"`
	ActionLogDir string   `yaml:"action_log_dir"`
	MetricsPath  string   `yaml:"metrics_path"`
	Parallelism  int      `yaml:"parallelism" validate:"omitempty,min=1"`
}

// applyDefaults fills in zero-value fields with their documented defaults.
func (c *RunConfig) applyDefaults() {
	if len(c.BudgetGrid) == 0 {
		c.BudgetGrid = append([]int(nil), DefaultBudgetGrid...)
	}
	if len(c.Tracks) == 0 {
		c.Tracks = []string{"privileged", "unprivileged"}
	}
	if c.OutputFormat == "" {
		c.OutputFormat = "csv"
	}
	if c.Parallelism == 0 {
		c.Parallelism = 0 // 0 means "let the driver pick GOMAXPROCS"
	}
}

var validate = validator.New()

// Load reads and validates a RunConfig from a YAML file at path.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and decodes raw YAML bytes into a RunConfig.
func Parse(data []byte) (*RunConfig, error) {
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}
