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
	"testing"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/heuristic"
	"github.com/AleutianAI/AleutianPlanner/services/planner/internal/problemtest"
	"github.com/AleutianAI/AleutianPlanner/services/planner/node"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deliveryNodes returns the root of the delivery problem and named children.
func deliveryNodes(t *testing.T) (root, fill, move, mac *node.Node) {
	t.Helper()
	p := problemtest.Build(t, problemtest.Delivery())
	root = node.NewRoot(p.Initial, node.NewLayout(classifier.Classify(p.Actions)))
	child := func(name string) *node.Node {
		n, err := root.Child(problemtest.ActionNamed(t, p, name))
		require.NoError(t, err)
		return n
	}
	fill = child("(fill_box_and_load_it_on_carrier a1 c1 b1 depot food)")
	move = child("(move_agent a1 l0 l1)")
	mac = child("(move_agent_and_carrier a1 c1 l0 l1)")
	return root, fill, move, mac
}

func TestOrderKey(t *testing.T) {
	root, fill, move, mac := deliveryNodes(t)
	assert.Equal(t, 0, orderKey(root))
	assert.Equal(t, 0, orderKey(fill), "one load offsets its cost")
	assert.Equal(t, 2, orderKey(move))
	assert.Equal(t, 2, orderKey(mac))
}

func TestFrontier_PopOrder(t *testing.T) {
	root, fill, move, mac := deliveryNodes(t)
	f := newFrontier(true)

	f.push(mac, 1)
	f.push(move, 1)
	f.push(fill, 5)
	f.push(root, 9)
	require.Equal(t, 4, f.Len())
	assert.Positive(t, f.Bytes())

	// key 0 first, in insertion order, then key 2 in insertion order
	assert.Same(t, fill, f.pop().node)
	assert.Same(t, root, f.pop().node)
	assert.Same(t, mac, f.pop().node)
	assert.Same(t, move, f.pop().node)
	assert.Zero(t, f.Len())
	assert.Zero(t, f.Bytes())
}

func TestFrontier_Prune(t *testing.T) {
	root, fill, move, mac := deliveryNodes(t)

	t.Run("keeps entries within best", func(t *testing.T) {
		f := newFrontier(true)
		f.push(root, 4)
		f.push(fill, 2)
		f.push(move, heuristic.Infeasible)
		f.push(mac, 3)

		dropped := f.prune(3)
		assert.Equal(t, 2, dropped)
		assert.Equal(t, 2, f.Len())
		for _, h := range f.values() {
			assert.LessOrEqual(t, h, heuristic.Value(3))
		}
		assert.Equal(t, fill.SizeBytes()+mac.SizeBytes(), f.Bytes())

		// heap order survives the rebuild
		assert.Same(t, fill, f.pop().node)
		assert.Same(t, mac, f.pop().node)
	})

	t.Run("clears when nothing qualifies", func(t *testing.T) {
		f := newFrontier(false)
		f.push(root, 4)
		f.push(fill, 5)

		assert.Equal(t, 2, f.prune(1))
		assert.Zero(t, f.Len())
		assert.Zero(t, f.Bytes())
	})
}

func TestAdmit(t *testing.T) {
	root, fill, move, mac := deliveryNodes(t)
	inf := heuristic.Infeasible
	mk := func(hs ...heuristic.Value) []scored {
		nodes := []*node.Node{root, fill, move, mac, root, fill, move}
		out := make([]scored, len(hs))
		for i, h := range hs {
			out[i] = scored{node: nodes[i], h: h}
		}
		return out
	}

	tests := []struct {
		name     string
		children []scored
		depth    int
		want     int
		rule     admission
	}{
		{"insertable only", mk(inf, 3, inf, 1), 4, 2, admitInsertable},
		{"root admits all", mk(inf, inf, inf), 0, 3, admitRoot},
		{"depth 1 admits all", mk(inf, inf, inf), 1, 3, admitDepth},
		{"depth 2 admits half", mk(inf, inf, inf, inf, inf), 2, 2, admitDepth},
		{"depth 3 of 7", mk(inf, inf, inf, inf, inf, inf, inf), 3, 2, admitDepth},
		{"deep admits none", mk(inf, inf), 3, 0, admitDepth},
		{"no children", nil, 2, 0, admitDepth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := admit(tt.children, tt.depth)
			assert.Equal(t, tt.rule, rule)
			require.Len(t, got, tt.want)
			if rule != admitInsertable {
				assert.Equal(t, tt.children[:tt.want], got, "generation order prefix")
			}
			for _, c := range got {
				if rule == admitInsertable {
					assert.False(t, c.h.IsInfeasible())
				}
			}
		})
	}
}

func TestExploredSet(t *testing.T) {
	s := newExploredSet()
	a := problem.NewState(8, 1, 3)
	b := problem.NewState(8, 1, 3)
	c := problem.NewState(8, 2)

	assert.False(t, s.contains(a))
	assert.True(t, s.add(a))
	assert.True(t, s.contains(b), "equal state, different value")
	assert.False(t, s.add(b))
	assert.False(t, s.contains(c))
	assert.True(t, s.add(c))
	assert.Equal(t, 2, s.Len())
}
