// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search implements the best-first planner loop.
//
// The frontier is not ordered by the heuristic. It prefers paths with fewer
// moves and more loads and deliveries; the heuristic only prunes. Whenever a
// popped node improves on the best estimate seen, every frontier node with a
// worse estimate is dropped, which can collapse the search onto one branch.
package search

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/heuristic"
	"github.com/AleutianAI/AleutianPlanner/services/planner/node"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/AleutianAI/AleutianPlanner/services/planner/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures the search engine.
type Config struct {
	// Timeout bounds one solve when Solve is called with a zero timeout.
	// Zero means no limit.
	Timeout time.Duration

	// MaxExplored stops the solve after this many explored states.
	// Zero means no limit.
	MaxExplored int

	// AccountMemory tracks the approximate frontier size in bytes.
	AccountMemory bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       60 * time.Second,
		MaxExplored:   0,
		AccountMemory: true,
	}
}

// -----------------------------------------------------------------------------
// Result
// -----------------------------------------------------------------------------

// Reason is why a solve stopped.
type Reason string

const (
	ReasonSolved    Reason = "solved"
	ReasonExhausted Reason = "exhausted"
	ReasonTimeout   Reason = "timeout"
	ReasonCancelled Reason = "cancelled"
	ReasonLimit     Reason = "limit"
	ReasonFailed    Reason = "failed"
)

// Result is the outcome of one solve.
type Result struct {
	// RunID identifies the solve in logs and traces.
	RunID string

	// Plan holds the actions from the initial state to the goal. Nil when no
	// plan was found.
	Plan []*problem.Action

	// Found is true when Plan reaches the goal.
	Found bool

	// Cost is the number of actions in Plan.
	Cost int

	// ExploredNodes counts distinct states popped and scored.
	ExploredNodes int

	// FrontierBytes approximates the memory held by the final frontier.
	FrontierBytes int

	// Elapsed is the wall-clock time of the solve.
	Elapsed time.Duration

	// Reason is why the solve stopped.
	Reason Reason

	// BestHeuristic is the lowest estimate seen on a popped node.
	BestHeuristic heuristic.Value
}

// -----------------------------------------------------------------------------
// Engine
// -----------------------------------------------------------------------------

// hooks let tests observe the loop. Nil fields are skipped.
type hooks struct {
	onPop   func(n *node.Node, h heuristic.Value)
	onPrune func(best heuristic.Value, survivors []heuristic.Value)
	onAdmit func(parent *node.Node, children, admitted []scored, rule admission)
}

// Engine runs best-first searches.
//
// Description:
//
//	Each Solve builds its own classifier table, estimator, frontier and
//	explored set; nothing is shared between solves except the count
//	reported by ExploredNodes.
//
// Thread Safety: Safe for concurrent use. Each Solve is single-threaded.
type Engine struct {
	config   Config
	logger   *slog.Logger
	explored atomic.Int64
	hooks    hooks
}

// NewEngine creates a search engine.
//
// Inputs:
//   - config: Search limits.
//   - logger: Logger for solve events. If nil, uses slog.Default().
//
// Outputs:
//   - *Engine: The new engine.
func NewEngine(config Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config: config,
		logger: logger.With(slog.String("component", "search")),
	}
}

// ExploredNodes returns the explored count of the most recent solve.
func (e *Engine) ExploredNodes() int {
	return int(e.explored.Load())
}

// Solve searches for a plan for p.
//
// Description:
//
//	Pops the frontier minimum by (moves - loads - delivers + cost, insertion
//	order), skipping states already explored. A popped node with estimate 0
//	ends the search. A popped node whose estimate beats the best seen so far
//	prunes the frontier to entries with estimate <= best. Children of the
//	popped node that are not yet explored go through admit.
//
// Inputs:
//   - ctx: Cancelling it stops the search at the next iteration.
//   - p: The grounded problem.
//   - timeout: Wall-clock limit. If zero, uses Config.Timeout.
//
// Outputs:
//   - *Result: Always non-nil unless the problem is unsupported.
//   - error: Wraps ErrUnsupportedProblem before search, node.ErrInvariant
//     on a classifier mismatch, or ctx.Err() on cancellation.
//
// Thread Safety: Safe for concurrent use.
func (e *Engine) Solve(ctx context.Context, p *problem.Problem, timeout time.Duration) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	if timeout <= 0 {
		timeout = e.config.Timeout
	}

	name, actions, facts := "", 0, 0
	if p != nil {
		name, actions, facts = p.Name, len(p.Actions), p.NumFacts()
	}
	ctx, span := startSolveSpan(ctx, runID, name, actions, facts)
	defer span.End()

	logger := telemetry.LoggerWithTrace(ctx, e.logger).With(
		slog.String("run_id", runID),
		slog.String("problem", name),
	)

	if err := checkSupported(p); err != nil {
		e.explored.Store(0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported problem")
		logger.Warn("problem rejected", slog.String("error", err.Error()))
		return nil, err
	}

	tbl := classifier.Classify(p.Actions)
	est := heuristic.New(p, tbl)
	root := node.NewRoot(p.Initial, node.NewLayout(tbl))

	s := &solver{
		problem:  p,
		est:      est,
		frontier: newFrontier(e.config.AccountMemory),
		explored: newExploredSet(),
		best:     est.Estimate(root),
		hooks:    e.hooks,
	}
	s.frontier.push(root, s.best)

	logger.Info("solve started",
		slog.Int("actions", actions),
		slog.Int("facts", facts),
		slog.Int("agents", tbl.Count(classifier.RoleAgent)),
		slog.Int("carriers", tbl.Count(classifier.RoleCarrier)),
		slog.Int("containers", tbl.Count(classifier.RoleContainer)),
		slog.String("root_estimate", s.best.String()),
		slog.Duration("timeout", timeout),
	)

	var deadline time.Time
	if timeout > 0 {
		deadline = start.Add(timeout)
	}
	result, err := s.run(ctx, deadline, e.config.MaxExplored)
	result.RunID = runID
	result.Elapsed = time.Since(start)
	e.explored.Store(int64(result.ExploredNodes))

	setSolveSpanResult(span, result)
	recordSolveMetrics(result)

	attrs := []any{
		slog.String("reason", string(result.Reason)),
		slog.Int("explored", result.ExploredNodes),
		slog.Int("cost", result.Cost),
		slog.Int("frontier_bytes", result.FrontierBytes),
		slog.String("best_estimate", result.BestHeuristic.String()),
		slog.Duration("elapsed", result.Elapsed),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("solve failed", append(attrs, slog.String("error", err.Error()))...)
		return result, err
	}
	span.SetStatus(codes.Ok, "")
	if result.Found {
		logger.Info("plan found", attrs...)
	} else {
		logger.Info("no plan found", attrs...)
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Search loop
// -----------------------------------------------------------------------------

// solver is the state of one Solve call.
type solver struct {
	problem  *problem.Problem
	est      *heuristic.Estimator
	frontier *frontier
	explored *exploredSet
	best     heuristic.Value
	hooks    hooks
}

func (s *solver) result(reason Reason) *Result {
	return &Result{
		ExploredNodes: s.explored.Len(),
		FrontierBytes: s.frontier.Bytes(),
		Reason:        reason,
		BestHeuristic: s.best,
	}
}

func (s *solver) run(ctx context.Context, deadline time.Time, maxExplored int) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			return s.result(ReasonCancelled), err
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return s.result(ReasonTimeout), nil
		}
		if maxExplored > 0 && s.explored.Len() >= maxExplored {
			return s.result(ReasonLimit), nil
		}
		if s.frontier.Len() == 0 {
			return s.result(ReasonExhausted), nil
		}

		it := s.frontier.pop()
		n := it.node
		if !s.explored.add(n.State()) {
			continue
		}
		if s.hooks.onPop != nil {
			s.hooks.onPop(n, it.h)
		}

		if it.h == 0 {
			s.best = 0
			r := s.result(ReasonSolved)
			r.Plan = n.Plan()
			r.Found = true
			r.Cost = n.Cost()
			return r, nil
		}

		if it.h < s.best {
			s.best = it.h
			frontierPrunes.Add(float64(s.frontier.prune(s.best)))
			if s.hooks.onPrune != nil {
				s.hooks.onPrune(s.best, s.frontier.values())
			}
		}

		if err := s.expand(n); err != nil {
			return s.result(ReasonFailed), &SearchError{Op: "expand", Err: err}
		}
	}
}

// expand generates the children of n in action order and admits them.
func (s *solver) expand(n *node.Node) error {
	var children []scored
	for _, a := range s.problem.Actions {
		if !n.State().Applicable(a) {
			continue
		}
		child, err := node.New(n, a)
		if err != nil {
			return err
		}
		if s.explored.contains(child.State()) {
			continue
		}
		children = append(children, scored{node: child, h: s.est.Estimate(child)})
	}

	admitted, rule := admit(children, n.Depth())
	if len(children) > 0 {
		admissionsTotal.WithLabelValues(string(rule)).Inc()
	}
	if s.hooks.onAdmit != nil {
		s.hooks.onAdmit(n, children, admitted, rule)
	}
	for _, c := range admitted {
		s.frontier.push(c.node, c.h)
	}
	return nil
}
