// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package problem

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// State is a fixed-size boolean vector over all facts of a problem.
//
// A State value is immutable: Apply and Progress return new states.
type State struct {
	bits *bitset.BitSet
}

// NewState creates a state over numFacts facts where exactly the given facts
// hold.
func NewState(numFacts int, facts ...int) State {
	b := bitset.New(uint(numFacts))
	for _, f := range facts {
		b.Set(uint(f))
	}
	return State{bits: b}
}

// StateOf wraps a bitset. The bitset must not be modified afterwards.
func StateOf(b *bitset.BitSet) State {
	return State{bits: b}
}

// Len returns the number of facts the state ranges over.
func (s State) Len() int {
	if s.bits == nil {
		return 0
	}
	return int(s.bits.Len())
}

// Holds reports whether fact f is true.
func (s State) Holds(f int) bool {
	return s.bits != nil && f >= 0 && s.bits.Test(uint(f))
}

// Count returns the number of facts that hold.
func (s State) Count() int {
	return count(s.bits)
}

// Bits returns a copy of the underlying bitset.
func (s State) Bits() *bitset.BitSet {
	if s.bits == nil {
		return bitset.New(0)
	}
	return s.bits.Clone()
}

// Satisfies reports whether every positive literal of c holds and no
// negative literal of c holds.
func (s State) Satisfies(c Condition) bool {
	if c.Positive != nil && c.Positive.Any() {
		if s.bits == nil || !s.bits.IsSuperSet(c.Positive) {
			return false
		}
	}
	if c.Negative != nil && c.Negative.Any() && s.bits != nil {
		if s.bits.IntersectionCardinality(c.Negative) != 0 {
			return false
		}
	}
	return true
}

// Apply returns a copy of s with the effect applied. Deletes are applied
// before adds, so a fact both added and deleted ends up true.
func (s State) Apply(e Effect) State {
	next := s.Bits()
	if e.Negative != nil {
		next.InPlaceDifference(e.Negative)
	}
	if e.Positive != nil {
		next.InPlaceUnion(e.Positive)
	}
	return State{bits: next}
}

// Applicable reports whether a's precondition holds in s.
func (s State) Applicable(a *Action) bool {
	return s.Satisfies(a.Precondition)
}

// Progress returns the successor of s under a: every conditional effect whose
// condition holds in s is applied, in order.
func (s State) Progress(a *Action) State {
	next := s.Bits()
	for _, ce := range a.Effects {
		if !s.Satisfies(ce.Condition) {
			continue
		}
		if ce.Effect.Negative != nil {
			next.InPlaceDifference(ce.Effect.Negative)
		}
		if ce.Effect.Positive != nil {
			next.InPlaceUnion(ce.Effect.Positive)
		}
	}
	return State{bits: next}
}

// Equal reports whether both states hold exactly the same facts. The
// capacity of the underlying bitsets is ignored: effects built wider than
// the fact count stretch successor states without changing their facts.
func (s State) Equal(other State) bool {
	n := s.Count()
	if n != other.Count() {
		return false
	}
	if n == 0 {
		return true
	}
	return s.bits.IntersectionCardinality(other.bits) == uint(n)
}

// Hash returns an xxhash digest of the facts that hold.
func (s State) Hash() uint64 {
	d := xxhash.New()
	var buf [8]byte
	Each(s.bits, func(f int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(f))
		_, _ = d.Write(buf[:])
	})
	return d.Sum64()
}

// SizeBytes approximates the memory held by the state.
func (s State) SizeBytes() int {
	if s.bits == nil {
		return 0
	}
	// word storage plus the bitset header
	return int(s.bits.Len()+63)/64*8 + 32
}
