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

import "github.com/AleutianAI/AleutianPlanner/services/planner/problem"

// exploredSet holds the states already popped in one solve.
//
// States are bucketed by their xxhash digest and compared for equality
// within a bucket, so hash collisions never merge distinct states.
type exploredSet struct {
	buckets map[uint64][]problem.State
	size    int
}

func newExploredSet() *exploredSet {
	return &exploredSet{buckets: make(map[uint64][]problem.State)}
}

func (e *exploredSet) Len() int { return e.size }

func (e *exploredSet) contains(s problem.State) bool {
	for _, other := range e.buckets[s.Hash()] {
		if other.Equal(s) {
			return true
		}
	}
	return false
}

// add inserts s and reports whether it was new.
func (e *exploredSet) add(s problem.State) bool {
	h := s.Hash()
	for _, other := range e.buckets[h] {
		if other.Equal(s) {
			return false
		}
	}
	e.buckets[h] = append(e.buckets[h], s)
	e.size++
	return true
}
