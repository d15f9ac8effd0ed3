// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package heuristic scores search nodes with an additive relaxed planning
// graph estimate guarded by three structural feasibility gates.
//
// The estimate is not admissible: shared preconditions are counted once per
// goal literal that needs them.
package heuristic

import (
	"math"
	"strconv"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/node"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
)

// -----------------------------------------------------------------------------
// Value
// -----------------------------------------------------------------------------

// Value is a goal-distance estimate. Lower is closer; zero means the goal
// holds.
type Value int

// Infeasible marks a node that cannot, or must not, reach the goal.
const Infeasible Value = math.MaxInt

// IsInfeasible reports whether v is Infeasible.
func (v Value) IsInfeasible() bool {
	return v == Infeasible
}

// String renders the value, "inf" for Infeasible.
func (v Value) String() string {
	if v.IsInfeasible() {
		return "inf"
	}
	return strconv.Itoa(int(v))
}

// unassigned marks a relaxed literal with no level yet.
const unassigned = -1

// LayerObserver is called after every relaxed layer with the literal levels
// so far. levels[f] is the level of fact f, levels[n+f] the level of its
// negation, -1 when unassigned. The slice is reused; copy it to keep it.
type LayerObserver func(layer int, levels []int)

// -----------------------------------------------------------------------------
// Estimator
// -----------------------------------------------------------------------------

// pair is one (action, conditional effect) combination of the relaxed graph.
type pair struct {
	// cardinality is the literal count of precondition ∪ effect condition.
	cardinality int
	// adds are the literal indices the effect makes true in the relaxation.
	adds []int
}

// Estimator computes relaxed planning graph estimates for one problem.
//
// Description:
//
//	Literals are indexed 0..n-1 for "fact holds" and n..2n-1 for "fact does
//	not hold". Every (action, conditional effect) pair is a relaxed operator
//	whose precondition is the action precondition joined with the effect
//	condition. Both polarities of the effect become reachable literals; the
//	relaxation never retracts a literal.
//
//	Estimate runs in four steps:
//	1. Layered expansion from the node state until all goal literals have a
//	   level or a layer adds nothing.
//	2. Infeasible if a goal literal has no level.
//	3. Feasibility gates (see gated).
//	4. Sum of goal literal levels.
//
// Thread Safety: NOT safe for concurrent use. Scratch buffers are shared by
// every call; use one Estimator per goroutine.
type Estimator struct {
	numFacts int
	pairs    []pair
	// edges[lit] lists the pairs whose precondition mentions lit.
	edges [][]int
	// free lists the pairs with an empty precondition.
	free []int
	goal []int

	unconditional []problem.Effect

	// b is min(#container, #container-site), m is min(#agent, #carrier).
	b int
	m int

	// scratch, reset on every call
	levels   []int
	counters []int
	enabled  []bool
	frontier []int
	next     []int
	ready    []int
	layers   int

	observer LayerObserver
}

// New builds the estimator for p using the role sizes from tbl.
//
// Inputs:
//   - p: The grounded problem. Must be valid.
//   - tbl: The object category table of p.
//
// Outputs:
//   - *Estimator: Ready to score nodes of p.
func New(p *problem.Problem, tbl *classifier.Table) *Estimator {
	n := p.NumFacts()
	e := &Estimator{
		numFacts:      n,
		edges:         make([][]int, 2*n),
		unconditional: make([]problem.Effect, len(p.Actions)),
		b:             min(tbl.Count(classifier.RoleContainer), tbl.Count(classifier.RoleContainerSite)),
		m:             min(tbl.Count(classifier.RoleAgent), tbl.Count(classifier.RoleCarrier)),
	}

	for _, a := range p.Actions {
		e.unconditional[a.Index] = a.UnconditionalEffect()
		for _, ce := range a.Effects {
			pre := a.Precondition.Union(ce.Condition)
			id := len(e.pairs)
			pr := pair{cardinality: pre.Cardinality()}
			problem.Each(pre.Positive, func(f int) {
				e.edges[f] = append(e.edges[f], id)
			})
			problem.Each(pre.Negative, func(f int) {
				e.edges[n+f] = append(e.edges[n+f], id)
			})
			problem.Each(ce.Effect.Positive, func(f int) {
				pr.adds = append(pr.adds, f)
			})
			problem.Each(ce.Effect.Negative, func(f int) {
				pr.adds = append(pr.adds, n+f)
			})
			if pr.cardinality == 0 {
				e.free = append(e.free, id)
			}
			e.pairs = append(e.pairs, pr)
		}
	}

	problem.Each(p.Goal.Positive, func(f int) { e.goal = append(e.goal, f) })
	problem.Each(p.Goal.Negative, func(f int) { e.goal = append(e.goal, n+f) })

	e.levels = make([]int, 2*n)
	e.counters = make([]int, len(e.pairs))
	e.enabled = make([]bool, len(e.pairs))
	return e
}

// SetObserver installs fn to be called after every relaxed layer. Nil
// removes it.
func (e *Estimator) SetObserver(fn LayerObserver) {
	e.observer = fn
}

// GoalCardinality returns the number of goal literals.
func (e *Estimator) GoalCardinality() int {
	return len(e.goal)
}

// Bounds returns b = min(#container, #container-site) and
// m = min(#agent, #carrier).
func (e *Estimator) Bounds() (b, m int) {
	return e.b, e.m
}

// Levels returns the number of layers built by the most recent call.
func (e *Estimator) Levels() int {
	return e.layers
}

// UnconditionalEffect returns the union of the empty-condition effects of
// the action with the given index.
func (e *Estimator) UnconditionalEffect(action int) problem.Effect {
	if action < 0 || action >= len(e.unconditional) {
		return problem.Effect{}
	}
	return e.unconditional[action]
}

// Estimate scores n.
//
// Outputs:
//   - Value: Zero iff every goal literal holds in n's state, Infeasible if
//     the goal is unreachable in the relaxation or a gate rejects the path,
//     the additive goal distance otherwise.
func (e *Estimator) Estimate(n *node.Node) Value {
	if !e.expand(n.State()) {
		return Infeasible
	}
	if e.gated(n) {
		return Infeasible
	}
	return e.sum()
}

// GoalDistance scores a bare state: the relaxed sum without the path gates.
func (e *Estimator) GoalDistance(s problem.State) Value {
	if !e.expand(s) {
		return Infeasible
	}
	return e.sum()
}

// -----------------------------------------------------------------------------
// Relaxed expansion
// -----------------------------------------------------------------------------

// expand levels every literal reachable from s and reports whether all goal
// literals received a level.
func (e *Estimator) expand(s problem.State) bool {
	for i := range e.levels {
		e.levels[i] = unassigned
	}
	clear(e.counters)
	clear(e.enabled)
	e.frontier = e.frontier[:0]
	e.ready = e.ready[:0]
	e.layers = 0

	n := e.numFacts
	for f := 0; f < n; f++ {
		lit := n + f
		if s.Holds(f) {
			lit = f
		}
		e.levels[lit] = 0
		e.frontier = append(e.frontier, lit)
	}
	for _, id := range e.free {
		e.enabled[id] = true
		e.ready = append(e.ready, id)
	}

	layer := 0
	e.notify(layer)
	for !e.goalReached() {
		e.enable()
		e.next = e.next[:0]
		for _, id := range e.ready {
			for _, lit := range e.pairs[id].adds {
				if e.levels[lit] == unassigned {
					e.levels[lit] = layer + 1
					e.next = append(e.next, lit)
				}
			}
		}
		e.ready = e.ready[:0]
		if len(e.next) == 0 {
			break
		}
		layer++
		e.frontier, e.next = e.next, e.frontier
		e.notify(layer)
	}
	e.layers = layer + 1
	return e.goalReached()
}

// enable counts the literals of the current frontier against every pair that
// needs them and queues pairs whose precondition became complete.
func (e *Estimator) enable() {
	for _, lit := range e.frontier {
		for _, id := range e.edges[lit] {
			e.counters[id]++
			if !e.enabled[id] && e.counters[id] == e.pairs[id].cardinality {
				e.enabled[id] = true
				e.ready = append(e.ready, id)
			}
		}
	}
}

func (e *Estimator) goalReached() bool {
	for _, lit := range e.goal {
		if e.levels[lit] == unassigned {
			return false
		}
	}
	return true
}

func (e *Estimator) sum() Value {
	total := 0
	for _, lit := range e.goal {
		total += e.levels[lit]
	}
	return Value(total)
}

func (e *Estimator) notify(layer int) {
	if e.observer != nil {
		e.observer(layer, e.levels)
	}
}

// -----------------------------------------------------------------------------
// Feasibility gates
// -----------------------------------------------------------------------------

// gated reports whether a structural gate rejects n.
//
// Description:
//
//	- The first b actions must each load one container: at depth d <= b the
//	  number of loaded containers must equal d.
//	- At depth b+m exactly m moves must have happened.
//	- A move may not directly follow another move by the same agent. Other
//	  agents' actions in between do not count as work.
//
//	A zero b or m turns the first two gates into checks on the root only,
//	which always pass.
func (e *Estimator) gated(n *node.Node) bool {
	d := n.Depth()
	if d <= e.b && n.LoadedContainers() != d {
		return true
	}
	if d == e.b+e.m && n.TotalMoves() != e.m {
		return true
	}
	return repeatedMove(n)
}

// repeatedMove reports whether n's action is a move and the nearest earlier
// action by the same agent is also a move.
func repeatedMove(n *node.Node) bool {
	if !n.ActionType().IsMove() {
		return false
	}
	agent := n.Action().Parameter(0)
	for cur := n.Parent(); cur != nil && !cur.IsRoot(); cur = cur.Parent() {
		if cur.Action().Parameter(0) != agent {
			continue
		}
		return cur.ActionType().IsMove()
	}
	return false
}
