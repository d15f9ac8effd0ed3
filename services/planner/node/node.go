// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package node defines the search node: a state plus the path aggregates the
// heuristic gates and the frontier ordering read.
//
// Nodes are immutable once built. A child shares its parent by pointer and
// copies the aggregates it changes.
package node

import (
	"errors"
	"fmt"
	"maps"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
)

// ErrInvariant is returned when an action names an agent or carrier the
// layout has no row for.
var ErrInvariant = errors.New("node invariant violated")

// -----------------------------------------------------------------------------
// Layout
// -----------------------------------------------------------------------------

// Layout maps agent and carrier object ids to aggregate rows.
//
// Thread Safety: Safe to read concurrently. Not modified after NewLayout.
type Layout struct {
	agentRow   map[int]int
	carrierRow map[int]int
}

// NewLayout derives aggregate rows from the agent and carrier roles of tbl.
func NewLayout(tbl *classifier.Table) *Layout {
	l := &Layout{
		agentRow:   make(map[int]int, tbl.Count(classifier.RoleAgent)),
		carrierRow: make(map[int]int, tbl.Count(classifier.RoleCarrier)),
	}
	for i, id := range tbl.Members(classifier.RoleAgent) {
		l.agentRow[id] = i
	}
	for i, id := range tbl.Members(classifier.RoleCarrier) {
		l.carrierRow[id] = i
	}
	return l
}

// Agents returns the number of agent rows.
func (l *Layout) Agents() int { return len(l.agentRow) }

// Carriers returns the number of carrier rows.
func (l *Layout) Carriers() int { return len(l.carrierRow) }

// -----------------------------------------------------------------------------
// Node
// -----------------------------------------------------------------------------

// Node is one vertex of the search tree.
type Node struct {
	state      problem.State
	parent     *Node
	action     *problem.Action
	actionType classifier.ActionType
	cost       int
	depth      int
	layout     *Layout

	// agentCounts[row][type] counts actions of each type per agent.
	agentCounts [][classifier.NumActionTypes]int
	// carrierLoad[row] is the number of boxes on each carrier.
	carrierLoad []int
	// contents maps container id to content id for filled boxes.
	contents map[int]int

	moves     int
	loads     int
	delivers  int
	loaded    int
	sizeBytes int
}

// NewRoot creates the root node: depth 0, cost 0, no action and empty
// aggregates.
func NewRoot(state problem.State, layout *Layout) *Node {
	n := &Node{
		state:       state,
		layout:      layout,
		agentCounts: make([][classifier.NumActionTypes]int, layout.Agents()),
		carrierLoad: make([]int, layout.Carriers()),
		contents:    map[int]int{},
	}
	n.sizeBytes = n.measure()
	return n
}

// New builds the child of parent reached by applying act.
//
// Description:
//
//	The successor state applies every conditional effect of act whose
//	condition holds in the parent state. Aggregates are copied from the
//	parent and updated by the action type:
//	- every recognised type increments the acting agent's counter
//	- fill-and-load adds one box to the carrier, unload-empty removes one
//	- fill-and-load records container -> content, deliver removes it when
//	  the container holds that content
//
//	Actions with an unrecognised name only change the state.
//
// Inputs:
//   - parent: The node being expanded. Must not be nil.
//   - act: An action applicable in parent's state.
//
// Outputs:
//   - *Node: The child node.
//   - error: Wraps ErrInvariant if the agent or carrier has no layout row.
func New(parent *Node, act *problem.Action) (*Node, error) {
	if parent == nil || act == nil {
		return nil, fmt.Errorf("%w: nil parent or action", ErrInvariant)
	}
	t := classifier.TypeOf(act)
	n := &Node{
		state:       parent.state.Progress(act),
		parent:      parent,
		action:      act,
		actionType:  t,
		cost:        parent.cost + 1,
		depth:       parent.depth + 1,
		layout:      parent.layout,
		agentCounts: parent.agentCounts,
		carrierLoad: parent.carrierLoad,
		contents:    parent.contents,
		moves:       parent.moves,
		loads:       parent.loads,
		delivers:    parent.delivers,
		loaded:      parent.loaded,
	}

	if t.Known() {
		agent := act.Parameter(0)
		row, ok := n.layout.agentRow[agent]
		if !ok {
			return nil, fmt.Errorf("%w: %s agent %d has no row", ErrInvariant, t, agent)
		}
		n.agentCounts = append([][classifier.NumActionTypes]int(nil), parent.agentCounts...)
		n.agentCounts[row][t]++

		switch {
		case t.IsMove():
			n.moves++
		case t == classifier.ActionFillAndLoad:
			n.loads++
		case t == classifier.ActionDeliver:
			n.delivers++
		}

		if pos := t.Position(classifier.RoleCarrier); pos >= 0 {
			carrier := act.Parameter(pos)
			crow, ok := n.layout.carrierRow[carrier]
			if !ok {
				return nil, fmt.Errorf("%w: %s carrier %d has no row", ErrInvariant, t, carrier)
			}
			if delta := loadDelta(t); delta != 0 {
				n.carrierLoad = append([]int(nil), parent.carrierLoad...)
				n.carrierLoad[crow] += delta
				n.loaded += delta
			}
		}

		switch t {
		case classifier.ActionFillAndLoad:
			n.contents = maps.Clone(parent.contents)
			n.contents[act.Parameter(2)] = act.Parameter(4)
		case classifier.ActionDeliver:
			box, content := act.Parameter(2), act.Parameter(3)
			if c, ok := parent.contents[box]; ok && c == content {
				n.contents = maps.Clone(parent.contents)
				delete(n.contents, box)
			}
		}
	}

	n.sizeBytes = n.measure()
	return n, nil
}

// Child is shorthand for New(n, act).
func (n *Node) Child(act *problem.Action) (*Node, error) {
	return New(n, act)
}

func loadDelta(t classifier.ActionType) int {
	switch t {
	case classifier.ActionFillAndLoad:
		return 1
	case classifier.ActionUnloadEmpty:
		return -1
	default:
		return 0
	}
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// State returns the node's state.
func (n *Node) State() problem.State { return n.state }

// Parent returns the parent node, nil at the root.
func (n *Node) Parent() *Node { return n.parent }

// Action returns the action that produced the node, nil at the root.
func (n *Node) Action() *problem.Action { return n.action }

// ActionType returns the schema of Action, ActionUnknown at the root.
func (n *Node) ActionType() classifier.ActionType { return n.actionType }

// Cost returns the path length from the root.
func (n *Node) Cost() int { return n.cost }

// Depth returns the number of actions between the root and n.
func (n *Node) Depth() int { return n.depth }

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool { return n.parent == nil }

// TotalMoves returns the number of move actions on the path.
func (n *Node) TotalMoves() int { return n.moves }

// TotalLoads returns the number of fill-and-load actions on the path.
func (n *Node) TotalLoads() int { return n.loads }

// TotalDelivers returns the number of deliver actions on the path.
func (n *Node) TotalDelivers() int { return n.delivers }

// LoadedContainers returns the sum of the per-carrier load counters.
func (n *Node) LoadedContainers() int { return n.loaded }

// AgentCount returns how many actions of type t the agent has performed.
// Zero for unknown agents.
func (n *Node) AgentCount(agent int, t classifier.ActionType) int {
	row, ok := n.layout.agentRow[agent]
	if !ok || t < 0 || t >= classifier.NumActionTypes {
		return 0
	}
	return n.agentCounts[row][t]
}

// CarrierLoad returns the number of boxes currently on the carrier.
func (n *Node) CarrierLoad(carrier int) int {
	row, ok := n.layout.carrierRow[carrier]
	if !ok {
		return 0
	}
	return n.carrierLoad[row]
}

// Contents returns a copy of the container -> content map.
func (n *Node) Contents() map[int]int {
	return maps.Clone(n.contents)
}

// Plan returns the actions from the root to n, in execution order.
func (n *Node) Plan() []*problem.Action {
	plan := make([]*problem.Action, n.depth)
	for cur := n; cur.parent != nil; cur = cur.parent {
		plan[cur.depth-1] = cur.action
	}
	return plan
}

// Equal reports whether both nodes hold the same state.
func (n *Node) Equal(other *Node) bool {
	return other != nil && n.state.Equal(other.state)
}

// SizeBytes approximates the memory owned by the node.
func (n *Node) SizeBytes() int { return n.sizeBytes }

func (n *Node) measure() int {
	const header = 160
	return header +
		n.state.SizeBytes() +
		len(n.agentCounts)*int(classifier.NumActionTypes)*8 +
		len(n.carrierLoad)*8 +
		len(n.contents)*32
}
