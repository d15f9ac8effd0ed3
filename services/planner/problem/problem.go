// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package problem holds the grounded planning problem consumed by the search
// core: facts, ground actions with conditional effects, the initial state and
// the goal.
//
// Everything in this package is treated as read-only once a Problem has been
// built. States are copied, never shared for writing.
package problem

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// Package-level error definitions.
var (
	ErrInvalidProblem = errors.New("invalid problem")
	ErrUnknownFact    = errors.New("unknown fact")
	ErrUnknownObject  = errors.New("unknown object")
)

// -----------------------------------------------------------------------------
// Conditions and Effects
// -----------------------------------------------------------------------------

// Condition is a conjunction of positive and negative fact literals.
//
// A nil bitset is an empty literal set.
type Condition struct {
	Positive *bitset.BitSet
	Negative *bitset.BitSet
}

// NewCondition creates an empty condition sized for numFacts facts.
func NewCondition(numFacts int) Condition {
	return Condition{
		Positive: bitset.New(uint(numFacts)),
		Negative: bitset.New(uint(numFacts)),
	}
}

// Cardinality returns the number of literals in the condition.
func (c Condition) Cardinality() int {
	return count(c.Positive) + count(c.Negative)
}

// IsEmpty reports whether the condition has no literals.
func (c Condition) IsEmpty() bool {
	return c.Cardinality() == 0
}

// Union returns a new condition holding the literals of both conditions.
func (c Condition) Union(other Condition) Condition {
	return Condition{
		Positive: union(c.Positive, other.Positive),
		Negative: union(c.Negative, other.Negative),
	}
}

// Effect is a delta on a state: Positive facts are added, Negative facts are
// deleted.
type Effect struct {
	Positive *bitset.BitSet
	Negative *bitset.BitSet
}

// NewEffect creates an empty effect sized for numFacts facts.
func NewEffect(numFacts int) Effect {
	return Effect{
		Positive: bitset.New(uint(numFacts)),
		Negative: bitset.New(uint(numFacts)),
	}
}

// IsEmpty reports whether the effect changes nothing.
func (e Effect) IsEmpty() bool {
	return count(e.Positive) == 0 && count(e.Negative) == 0
}

// ConditionalEffect applies Effect only when Condition holds in the state the
// action is applied to.
type ConditionalEffect struct {
	Condition Condition
	Effect    Effect
}

// -----------------------------------------------------------------------------
// Actions
// -----------------------------------------------------------------------------

// Action is a ground operator instance.
type Action struct {
	// Index is the position of the action in Problem.Actions.
	Index int

	// Name is the schema name, e.g. "move_agent".
	Name string

	// Parameters are object ids, in schema parameter order.
	Parameters []int

	// Precondition must hold for the action to be applicable.
	Precondition Condition

	// Effects are applied in order; each one only if its condition holds in
	// the state before application.
	Effects []ConditionalEffect
}

// UnconditionalEffect returns the union of the effects whose condition is
// empty.
func (a *Action) UnconditionalEffect() Effect {
	var out Effect
	for _, ce := range a.Effects {
		if !ce.Condition.IsEmpty() {
			continue
		}
		out.Positive = union(out.Positive, ce.Effect.Positive)
		out.Negative = union(out.Negative, ce.Effect.Negative)
	}
	return out
}

// Parameter returns the object id at position i, or -1 if the action has no
// such parameter.
func (a *Action) Parameter(i int) int {
	if i < 0 || i >= len(a.Parameters) {
		return -1
	}
	return a.Parameters[i]
}

// -----------------------------------------------------------------------------
// Problem
// -----------------------------------------------------------------------------

// Problem is a grounded planning problem.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Problem struct {
	Name    string
	Facts   []string
	Objects []string
	Actions []*Action
	Initial State
	Goal    Condition
}

// NumFacts returns the number of facts.
func (p *Problem) NumFacts() int {
	return len(p.Facts)
}

// ObjectName returns the printable name of an object id.
func (p *Problem) ObjectName(id int) string {
	if id < 0 || id >= len(p.Objects) {
		return fmt.Sprintf("#%d", id)
	}
	return p.Objects[id]
}

// FormatAction renders an action as "(name obj1 obj2 ...)".
func (p *Problem) FormatAction(a *Action) string {
	out := "(" + a.Name
	for _, id := range a.Parameters {
		out += " " + p.ObjectName(id)
	}
	return out + ")"
}

// Validate checks structural consistency: every bitset fits the fact table
// and every parameter refers to a declared object.
//
// Outputs:
//   - error: Wraps ErrInvalidProblem with the offending element.
func (p *Problem) Validate() error {
	n := uint(len(p.Facts))
	if p.Initial.bits == nil {
		return fmt.Errorf("%w: missing initial state", ErrInvalidProblem)
	}
	if p.Initial.bits.Len() != n {
		return fmt.Errorf("%w: initial state has %d facts, want %d", ErrInvalidProblem, p.Initial.bits.Len(), n)
	}
	if !fits(p.Goal.Positive, n) || !fits(p.Goal.Negative, n) {
		return fmt.Errorf("%w: goal refers to unknown facts", ErrInvalidProblem)
	}
	for i, a := range p.Actions {
		if a.Index != i {
			return fmt.Errorf("%w: action %q has index %d at position %d", ErrInvalidProblem, a.Name, a.Index, i)
		}
		if !fits(a.Precondition.Positive, n) || !fits(a.Precondition.Negative, n) {
			return fmt.Errorf("%w: precondition of %q refers to unknown facts", ErrInvalidProblem, a.Name)
		}
		for _, ce := range a.Effects {
			if !fits(ce.Condition.Positive, n) || !fits(ce.Condition.Negative, n) ||
				!fits(ce.Effect.Positive, n) || !fits(ce.Effect.Negative, n) {
				return fmt.Errorf("%w: effect of %q refers to unknown facts", ErrInvalidProblem, a.Name)
			}
		}
		for _, id := range a.Parameters {
			if id < 0 || id >= len(p.Objects) {
				return fmt.Errorf("%w: action %q parameter %d", ErrUnknownObject, a.Name, id)
			}
		}
	}
	return nil
}

// Fingerprint returns a stable hash of the problem structure.
//
// Two problems with the same facts, objects, actions, initial state and goal
// share a fingerprint. Used as the plan cache key.
func (p *Problem) Fingerprint() uint64 {
	d := xxhash.New()
	writeString := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	writeSet := func(b *bitset.BitSet) {
		var buf [8]byte
		if b != nil {
			for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
				binary.LittleEndian.PutUint64(buf[:], uint64(i))
				_, _ = d.Write(buf[:])
			}
		}
		_, _ = d.Write([]byte{0xff})
	}
	for _, f := range p.Facts {
		writeString(f)
	}
	for _, o := range p.Objects {
		writeString(o)
	}
	for _, a := range p.Actions {
		writeString(p.FormatAction(a))
		writeSet(a.Precondition.Positive)
		writeSet(a.Precondition.Negative)
		for _, ce := range a.Effects {
			writeSet(ce.Condition.Positive)
			writeSet(ce.Condition.Negative)
			writeSet(ce.Effect.Positive)
			writeSet(ce.Effect.Negative)
		}
	}
	writeSet(p.Initial.bits)
	writeSet(p.Goal.Positive)
	writeSet(p.Goal.Negative)
	return d.Sum64()
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func count(b *bitset.BitSet) int {
	if b == nil {
		return 0
	}
	return int(b.Count())
}

func union(a, b *bitset.BitSet) *bitset.BitSet {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		return b.Clone()
	case b == nil:
		return a.Clone()
	default:
		return a.Union(b)
	}
}

// fits reports whether every set bit of b is below n.
func fits(b *bitset.BitSet, n uint) bool {
	if b == nil {
		return true
	}
	_, ok := b.NextSet(n)
	return !ok
}

// Each calls fn for every set bit of b, in ascending order. A nil set is
// empty.
func Each(b *bitset.BitSet, fn func(fact int)) {
	if b == nil {
		return
	}
	for i, ok := b.NextSet(0); ok; i, ok = b.NextSet(i + 1) {
		fn(int(i))
	}
}
