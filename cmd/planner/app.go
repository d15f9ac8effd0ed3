// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/AleutianAI/AleutianPlanner/pkg/logging"
	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
	"github.com/spf13/cobra"
)

// app holds state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// persistent flags
	configPath string
	logLevel   string
	logJSON    bool
	logDir     string
	useStore   bool
	storePath  string
	trace      bool

	solve solveFlags

	cfg             config.PlannerConfig
	logger          *logging.Logger
	db              *badger.DB
	store           *badger.PlanStore
	shutdownTracing func(context.Context) error
}

func newRootCmd(stdout, stderr io.Writer) (*cobra.Command, *app) {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "planner",
		Short: "Solve grounded delivery planning problems",
		Long: `planner runs a best-first search over grounded planning problems in which
agents fill boxes with content, carry them on carriers between locations and
deliver the content to people.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML or JSON planner config")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolVar(&a.logJSON, "log-json", false, "Write logs to stderr as JSON")
	pf.StringVar(&a.logDir, "log-dir", "", "Also write JSON logs to this directory")
	pf.BoolVar(&a.useStore, "store", false, "Cache plans in the plan store")
	pf.StringVar(&a.storePath, "store-path", "", "Plan store directory (implies --store)")
	pf.BoolVar(&a.trace, "trace", false, "Export solve spans (OTEL_TRACES_EXPORTER, default stdout)")

	root.AddCommand(
		newSolveCmd(a),
		newInspectCmd(a),
		newPlansCmd(a),
	)
	return root, a
}

// setup loads the configuration, applies flag overrides and opens the
// logger, tracer and plan store.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Observability.LogLevel = a.logLevel
	}
	if flags.Changed("log-json") {
		cfg.Observability.LogJSON = a.logJSON
	}
	if flags.Changed("log-dir") {
		cfg.Observability.LogDir = a.logDir
	}
	if flags.Changed("trace") {
		cfg.Observability.TracingEnabled = a.trace
	}
	if flags.Changed("store") {
		cfg.Store.Enabled = a.useStore
	}
	if flags.Changed("store-path") {
		cfg.Store.Enabled = true
		cfg.Store.InMemory = false
		cfg.Store.Path = a.storePath
	}
	a.solve.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Observability.LogDir,
		Service: cfg.Observability.ServiceName,
		JSON:    cfg.Observability.LogJSON,
		Output:  a.stderr,
	})

	if cfg.Observability.TracingEnabled {
		tcfg := telemetry.DefaultConfig()
		tcfg.ServiceName = cfg.Observability.ServiceName
		if tcfg.TraceExporter == "none" {
			tcfg.TraceExporter = "stdout"
			tcfg.Output = a.stderr
		}
		shutdown, err := telemetry.Init(cmd.Context(), tcfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		a.shutdownTracing = shutdown
	}

	if cfg.Store.Enabled {
		if err := a.openStore(); err != nil {
			return err
		}
	}
	return nil
}

// openStore opens the plan store described by the loaded config.
func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}

	var dbCfg badger.Config
	if a.cfg.Store.InMemory {
		dbCfg = badger.InMemoryConfig()
	} else {
		dbCfg = badger.DefaultConfig()
		dbCfg.Path = a.cfg.Store.StorePath()
	}
	if a.logger != nil {
		dbCfg.Logger = a.logger.Slog().With("component", "plan-store")
	}

	db, err := badger.Open(dbCfg)
	if err != nil {
		return fmt.Errorf("open plan store: %w", err)
	}
	a.db = db
	a.store = badger.NewPlanStore(db)
	return nil
}

// requireStore opens the store even when caching is disabled, for commands
// that only read it.
func (a *app) requireStore() (*badger.PlanStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	if a.cfg.Store.Path == "" && !a.cfg.Store.InMemory {
		return nil, errors.New("plan store path is empty; pass --store-path")
	}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	return a.store, nil
}

// close releases everything setup opened. Safe to call when setup never
// ran.
func (a *app) close() error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close plan store: %w", err))
		}
		a.db, a.store = nil, nil
	}
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		a.shutdownTracing = nil
	}
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			errs = append(errs, err)
		}
		a.logger = nil
	}
	return errors.Join(errs...)
}
