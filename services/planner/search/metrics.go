// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("aleutian.planner.search")

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// solvesTotal counts finished solves by termination reason
	solvesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "solves_total",
		Help:      "Total solves by termination reason",
	}, []string{"reason"})

	// solveDuration tracks wall-clock time per solve
	solveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "solve_duration_seconds",
		Help:      "Solve duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
	}, []string{"reason"})

	// exploredNodes tracks explored states per solve
	exploredNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "explored_nodes",
		Help:      "Number of states explored per solve",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
	})

	// planLength tracks the cost of found plans
	planLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "plan_length",
		Help:      "Number of actions in found plans",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})

	// frontierPrunes counts frontier nodes dropped on heuristic improvement
	frontierPrunes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "frontier_pruned_total",
		Help:      "Frontier nodes dropped after the best estimate improved",
	})

	// admissionsTotal counts expansions by the admission rule applied
	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "search",
		Name:      "admissions_total",
		Help:      "Expansions by admission rule",
	}, []string{"rule"})
)

// startSolveSpan creates the span covering one solve.
func startSolveSpan(ctx context.Context, runID, problemName string, actions, facts int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "search.Engine.Solve",
		trace.WithAttributes(
			attribute.String("planner.run_id", runID),
			attribute.String("planner.problem", problemName),
			attribute.Int("planner.actions", actions),
			attribute.Int("planner.facts", facts),
		),
	)
}

// setSolveSpanResult records the outcome attributes on a solve span.
func setSolveSpanResult(span trace.Span, r *Result) {
	span.SetAttributes(
		attribute.String("planner.reason", string(r.Reason)),
		attribute.Bool("planner.found", r.Found),
		attribute.Int("planner.cost", r.Cost),
		attribute.Int("planner.explored", r.ExploredNodes),
	)
}

// recordSolveMetrics records the Prometheus metrics for one finished solve.
func recordSolveMetrics(r *Result) {
	reason := string(r.Reason)
	solvesTotal.WithLabelValues(reason).Inc()
	solveDuration.WithLabelValues(reason).Observe(r.Elapsed.Seconds())
	exploredNodes.Observe(float64(r.ExploredNodes))
	if r.Found {
		planLength.Observe(float64(r.Cost))
	}
}
