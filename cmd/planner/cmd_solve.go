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
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/config"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/AleutianAI/AleutianPlanner/services/planner/search"
	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// solveFlags are the flags local to the solve command.
type solveFlags struct {
	timeout     time.Duration
	maxExplored int
	concurrency int
	metricsAddr string
	noCache     bool
	json        bool
}

// apply copies changed solve flags over cfg. A no-op for other commands.
func (f *solveFlags) apply(cmd *cobra.Command, cfg *config.PlannerConfig) {
	flags := cmd.Flags()
	if flags.Lookup("timeout") == nil {
		return
	}
	if flags.Changed("timeout") {
		cfg.Search.Timeout = f.timeout
	}
	if flags.Changed("max-explored") {
		cfg.Search.MaxExplored = f.maxExplored
	}
	if flags.Changed("concurrency") {
		cfg.Batch.Concurrency = f.concurrency
	}
	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsEnabled = f.metricsAddr != ""
		cfg.Observability.MetricsAddr = f.metricsAddr
	}
}

func newSolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve <problem.yaml>...",
		Short: "Search for a plan for each problem file",
		Long: `Loads each problem file (YAML or JSON), searches for a plan and prints it.
Files are solved concurrently, up to --concurrency at a time. With --store,
plans already cached for an identical problem are returned without searching.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSolve(cmd.Context(), args)
		},
	}

	f := cmd.Flags()
	f.DurationVar(&a.solve.timeout, "timeout", 0, "Wall-clock limit per problem (default from config, 60s)")
	f.IntVar(&a.solve.maxExplored, "max-explored", 0, "Stop after this many explored states (0 = unbounded)")
	f.IntVar(&a.solve.concurrency, "concurrency", 0, "Problems solved in parallel (default from config, 4)")
	f.StringVar(&a.solve.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while solving")
	f.BoolVar(&a.solve.noCache, "no-cache", false, "Ignore cached plans (results are still stored)")
	f.BoolVar(&a.solve.json, "json", false, "Print results as JSON")
	return cmd
}

// solveOutcome is the result of solving one problem file.
type solveOutcome struct {
	Path        string        `json:"path"`
	Problem     string        `json:"problem,omitempty"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	Cached      bool          `json:"cached"`
	Found       bool          `json:"found"`
	Reason      search.Reason `json:"reason,omitempty"`
	Plan        []string      `json:"plan,omitempty"`
	Explored    int           `json:"explored_nodes"`
	FrontierKB  float64       `json:"frontier_kb"`
	ElapsedMs   int64         `json:"elapsed_ms"`
	RunID       string        `json:"run_id,omitempty"`
	Error       string        `json:"error,omitempty"`

	err error
}

func (a *app) runSolve(ctx context.Context, paths []string) error {
	start := time.Now()

	if a.cfg.Observability.MetricsEnabled && a.cfg.Observability.MetricsAddr != "" {
		ms, err := telemetry.ServeMetrics(a.cfg.Observability.MetricsAddr)
		if err != nil {
			return err
		}
		a.logger.Info("serving metrics", slog.String("addr", ms.Addr()))
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ms.Shutdown(sctx); err != nil {
				a.logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
			}
		}()
	}

	searchCfg := a.cfg.Search.ToSearchConfig()
	outcomes := make([]solveOutcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Batch.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			outcomes[i] = a.solveFile(gctx, searchCfg, path)
			return nil
		})
	}
	_ = g.Wait() // per-file failures are reported in outcomes

	if a.solve.json {
		if err := outputJSON(a.stdout, "solve", start, outcomes, false); err != nil {
			return err
		}
	} else {
		p := newPrinter(a.stdout)
		for _, o := range outcomes {
			p.outcome(o)
		}
	}

	failed, unsolved := 0, 0
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			failed++
		case !o.Found:
			unsolved++
		}
	}
	switch {
	case failed > 0:
		return &exitError{code: CLIExitError, msg: fmt.Sprintf("%d of %d problems failed", failed, len(paths))}
	case unsolved > 0:
		return &exitError{code: CLIExitFindings, msg: fmt.Sprintf("%d of %d problems unsolved", unsolved, len(paths))}
	}
	return nil
}

// solveFile loads one problem and answers it from the store or by search.
func (a *app) solveFile(ctx context.Context, cfg search.Config, path string) solveOutcome {
	out := solveOutcome{Path: path}
	fail := func(err error) solveOutcome {
		out.err = err
		out.Error = err.Error()
		return out
	}

	p, err := problem.Load(path)
	if err != nil {
		return fail(err)
	}
	fp := p.Fingerprint()
	out.Problem = p.Name
	out.Fingerprint = fmt.Sprintf("%016x", fp)
	logger := a.logger.Slog().With(slog.String("path", path), slog.String("fingerprint", out.Fingerprint))

	if a.store != nil && !a.solve.noCache {
		rec, err := a.store.Get(ctx, fp)
		switch {
		case err == nil && rec.Found:
			logger.Info("plan cache hit", slog.String("run_id", rec.RunID))
			out.Cached = true
			out.Found = true
			out.Reason = rec.Reason
			out.Plan = rec.Actions
			out.Explored = rec.ExploredNodes
			out.RunID = rec.RunID
			return out
		case err != nil && !errors.Is(err, badger.ErrPlanNotFound):
			logger.Warn("plan cache read failed", slog.String("error", err.Error()))
		}
	}

	engine := search.NewEngine(cfg, logger)
	res, err := engine.Solve(ctx, p, 0)
	if res != nil {
		out.Found = res.Found
		out.Reason = res.Reason
		out.Explored = res.ExploredNodes
		out.FrontierKB = float64(res.FrontierBytes) / 1024
		out.ElapsedMs = res.Elapsed.Milliseconds()
		out.RunID = res.RunID
		for _, act := range res.Plan {
			out.Plan = append(out.Plan, p.FormatAction(act))
		}
	}
	if err != nil {
		return fail(err)
	}

	if a.store != nil && res.Found {
		if err := a.store.Put(ctx, badger.NewPlanRecord(p, res)); err != nil {
			logger.Warn("plan cache write failed", slog.String("error", err.Error()))
		}
	}
	return out
}
