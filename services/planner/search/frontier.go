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
	"container/heap"

	"github.com/AleutianAI/AleutianPlanner/services/planner/heuristic"
	"github.com/AleutianAI/AleutianPlanner/services/planner/node"
)

// -----------------------------------------------------------------------------
// Frontier
// -----------------------------------------------------------------------------

// item is a frontier entry. h is the estimate taken when the node was
// generated.
type item struct {
	node *node.Node
	h    heuristic.Value
	key  int
	seq  uint64
}

// orderKey prefers paths with fewer moves and more payload work:
// moves - loads - delivers + cost, lower first.
func orderKey(n *node.Node) int {
	return n.TotalMoves() - n.TotalLoads() - n.TotalDelivers() + n.Cost()
}

// frontier is a min-heap on (key, seq). seq is the insertion counter, so
// equal keys pop in insertion order.
type frontier struct {
	items   itemHeap
	seq     uint64
	bytes   int
	account bool
}

func newFrontier(account bool) *frontier {
	return &frontier{account: account}
}

func (f *frontier) Len() int { return len(f.items) }

// Bytes returns the approximate memory of the resident nodes. Zero when
// accounting is off.
func (f *frontier) Bytes() int { return f.bytes }

func (f *frontier) push(n *node.Node, h heuristic.Value) {
	it := &item{node: n, h: h, key: orderKey(n), seq: f.seq}
	f.seq++
	heap.Push(&f.items, it)
	if f.account {
		f.bytes += n.SizeBytes()
	}
}

func (f *frontier) pop() *item {
	it := heap.Pop(&f.items).(*item)
	if f.account {
		f.bytes -= it.node.SizeBytes()
	}
	return it
}

// prune keeps only the entries with h <= best and returns how many were
// dropped. When none qualify the frontier is emptied.
func (f *frontier) prune(best heuristic.Value) int {
	kept := f.items[:0]
	dropped := 0
	for _, it := range f.items {
		if it.h <= best {
			kept = append(kept, it)
			continue
		}
		dropped++
		if f.account {
			f.bytes -= it.node.SizeBytes()
		}
	}
	clear(f.items[len(kept):])
	f.items = kept
	heap.Init(&f.items)
	return dropped
}

// values returns the stored estimates of the resident entries, in heap order.
func (f *frontier) values() []heuristic.Value {
	out := make([]heuristic.Value, len(f.items))
	for i, it := range f.items {
		out[i] = it.h
	}
	return out
}

// itemHeap implements heap.Interface.
type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) { *h = append(*h, x.(*item)) }

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// -----------------------------------------------------------------------------
// Fallback admission
// -----------------------------------------------------------------------------

// scored is a generated child with its estimate.
type scored struct {
	node *node.Node
	h    heuristic.Value
}

// admission names the rule admit applied.
type admission string

const (
	admitInsertable admission = "insertable"
	admitRoot       admission = "root"
	admitDepth      admission = "depth"
)

// admit selects which children of a node at depth d enter the frontier.
//
// Description:
//
//	children are the non-explored successors in generation order.
//	- If any has a finite estimate, exactly those are admitted.
//	- Otherwise the root admits all of them.
//	- Otherwise the first floor(k/d) are admitted, k = len(children).
func admit(children []scored, depth int) ([]scored, admission) {
	insertable := make([]scored, 0, len(children))
	for _, c := range children {
		if !c.h.IsInfeasible() {
			insertable = append(insertable, c)
		}
	}
	if len(insertable) > 0 {
		return insertable, admitInsertable
	}
	if depth == 0 {
		return children, admitRoot
	}
	return children[:len(children)/depth], admitDepth
}
