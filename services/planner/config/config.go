// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the planner configuration from defaults, an optional
// YAML or JSON file, and PLANNER_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/search"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// PlannerConfig contains all planner configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type PlannerConfig struct {
	// Search contains search limits.
	Search SearchConfig `json:"search" yaml:"search"`

	// Observability contains logging, metrics and tracing settings.
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`

	// Store contains plan cache settings.
	Store StoreConfig `json:"store" yaml:"store"`

	// Batch contains settings for solving several problems in one run.
	Batch BatchConfig `json:"batch" yaml:"batch"`
}

// SearchConfig contains search limits.
type SearchConfig struct {
	Timeout       time.Duration `json:"timeout" yaml:"timeout" validate:"gte=0"`
	MaxExplored   int           `json:"max_explored" yaml:"max_explored" validate:"gte=0"`
	AccountMemory bool          `json:"account_memory" yaml:"account_memory"`
}

// ObservabilityConfig contains observability settings.
type ObservabilityConfig struct {
	LogLevel       string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
	LogJSON        bool   `json:"log_json" yaml:"log_json"`
	LogDir         string `json:"log_dir" yaml:"log_dir"`
	MetricsEnabled bool   `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsAddr    string `json:"metrics_addr" yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
	ServiceName    string `json:"service_name" yaml:"service_name" validate:"required"`
}

// StoreConfig contains plan cache settings.
type StoreConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Path     string `json:"path" yaml:"path"`
	InMemory bool   `json:"in_memory" yaml:"in_memory"`
}

// BatchConfig contains batch solve settings.
type BatchConfig struct {
	Concurrency int `json:"concurrency" yaml:"concurrency" validate:"gte=1,lte=256"`
}

// DefaultPlannerConfig returns the default configuration.
//
// Outputs:
//   - PlannerConfig: Default configuration with sensible values.
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		Search: SearchConfig{
			Timeout:       60 * time.Second,
			MaxExplored:   0, // unbounded
			AccountMemory: true,
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogJSON:        false,
			LogDir:         "",
			MetricsEnabled: false,
			MetricsAddr:    "",
			TracingEnabled: false,
			ServiceName:    "planner",
		},
		Store: StoreConfig{
			Enabled:  false,
			Path:     "~/.aleutian/planner/plans",
			InMemory: false,
		},
		Batch: BatchConfig{
			Concurrency: 4,
		},
	}
}

// Load loads configuration with priority: env > file > defaults.
//
// Inputs:
//   - configPath: Path to YAML/JSON config file (optional, can be empty).
//
// Outputs:
//   - PlannerConfig: Merged configuration.
//   - error: Non-nil if the file exists but is invalid, or the merged
//     configuration fails validation.
func Load(configPath string) (PlannerConfig, error) {
	config := DefaultPlannerConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadConfigFile(path string, config *PlannerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *PlannerConfig) {
	// Search
	if v := os.Getenv("PLANNER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Search.Timeout = d
		}
	}
	if v := os.Getenv("PLANNER_MAX_EXPLORED"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Search.MaxExplored = i
		}
	}
	if v := os.Getenv("PLANNER_ACCOUNT_MEMORY"); v != "" {
		config.Search.AccountMemory = isTrue(v)
	}

	// Observability
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("PLANNER_LOG_JSON"); v != "" {
		config.Observability.LogJSON = isTrue(v)
	}
	if v := os.Getenv("PLANNER_LOG_DIR"); v != "" {
		config.Observability.LogDir = v
	}
	if v := os.Getenv("PLANNER_METRICS_ENABLED"); v != "" {
		config.Observability.MetricsEnabled = isTrue(v)
	}
	if v := os.Getenv("PLANNER_METRICS_ADDR"); v != "" {
		config.Observability.MetricsAddr = v
	}
	if v := os.Getenv("PLANNER_TRACING_ENABLED"); v != "" {
		config.Observability.TracingEnabled = isTrue(v)
	}

	// Store
	if v := os.Getenv("PLANNER_STORE_ENABLED"); v != "" {
		config.Store.Enabled = isTrue(v)
	}
	if v := os.Getenv("PLANNER_STORE_PATH"); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv("PLANNER_STORE_IN_MEMORY"); v != "" {
		config.Store.InMemory = isTrue(v)
	}

	// Batch
	if v := os.Getenv("PLANNER_CONCURRENCY"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			config.Batch.Concurrency = i
		}
	}
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}

// Validate checks that the configuration is valid.
//
// Outputs:
//   - error: Wraps ErrInvalidConfig with the first failing field.
func (c PlannerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Store.Enabled && !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("%w: store.path required when the store is enabled on disk", ErrInvalidConfig)
	}
	if c.Observability.MetricsAddr != "" && !c.Observability.MetricsEnabled {
		return fmt.Errorf("%w: metrics_addr set but metrics disabled", ErrInvalidConfig)
	}
	return nil
}

// ToSearchConfig converts SearchConfig to the engine configuration.
//
// Outputs:
//   - search.Config: Engine configuration.
func (c SearchConfig) ToSearchConfig() search.Config {
	return search.Config{
		Timeout:       c.Timeout,
		MaxExplored:   c.MaxExplored,
		AccountMemory: c.AccountMemory,
	}
}

// StorePath returns Store.Path with a leading ~ expanded to the home
// directory.
func (c StoreConfig) StorePath() string {
	return ExpandPath(c.Path)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
