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
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func set(n uint, bits ...uint) *bitset.BitSet {
	b := bitset.New(n)
	for _, i := range bits {
		b.Set(i)
	}
	return b
}

func TestState_Satisfies(t *testing.T) {
	s := NewState(6, 0, 2)

	tests := []struct {
		name string
		c    Condition
		want bool
	}{
		{"empty", Condition{}, true},
		{"positive held", Condition{Positive: set(6, 0, 2)}, true},
		{"positive missing", Condition{Positive: set(6, 0, 1)}, false},
		{"negative absent", Condition{Negative: set(6, 1, 5)}, true},
		{"negative held", Condition{Negative: set(6, 2)}, false},
		{"mixed", Condition{Positive: set(6, 0), Negative: set(6, 3)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Satisfies(tt.c))
		})
	}
}

func TestState_Apply(t *testing.T) {
	s := NewState(4, 0, 1)

	next := s.Apply(Effect{Positive: set(4, 2), Negative: set(4, 0)})
	assert.True(t, next.Holds(1))
	assert.True(t, next.Holds(2))
	assert.False(t, next.Holds(0))
	assert.True(t, s.Holds(0), "original unchanged")

	t.Run("add wins over delete", func(t *testing.T) {
		both := s.Apply(Effect{Positive: set(4, 3), Negative: set(4, 3)})
		assert.True(t, both.Holds(3))
	})

	t.Run("nil effect is identity", func(t *testing.T) {
		assert.True(t, s.Apply(Effect{}).Equal(s))
	})
}

func TestState_Progress(t *testing.T) {
	// fact 0 armed, 1 fired, 2 noise
	a := &Action{
		Name: "pull",
		Effects: []ConditionalEffect{
			{Condition: Condition{Positive: set(3, 0)}, Effect: Effect{Positive: set(3, 1), Negative: set(3, 0)}},
			{Effect: Effect{Positive: set(3, 2)}},
			// reads the state before application: fact 0 still holds here
			{Condition: Condition{Positive: set(3, 0)}, Effect: Effect{Positive: set(3, 2)}},
		},
	}

	unarmed := NewState(3).Progress(a)
	assert.False(t, unarmed.Holds(1))
	assert.True(t, unarmed.Holds(2))

	armed := NewState(3, 0).Progress(a)
	assert.True(t, armed.Holds(1))
	assert.False(t, armed.Holds(0))
	assert.Equal(t, 2, armed.Count())
}

func TestState_HashAndEqual(t *testing.T) {
	a := NewState(70, 1, 65)
	b := NewState(70, 65, 1)
	c := NewState(70, 1)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.True(t, State{}.Equal(NewState(4)))
	assert.Positive(t, a.SizeBytes())
	assert.Equal(t, 70, a.Len())
}

func TestState_EqualIgnoresCapacity(t *testing.T) {
	narrow := NewState(3, 0)
	wide := StateOf(set(64, 0))

	assert.True(t, narrow.Equal(wide))
	assert.True(t, wide.Equal(narrow))
	assert.Equal(t, narrow.Hash(), wide.Hash())
	assert.False(t, narrow.Equal(StateOf(set(64, 0, 40))))

	// A wide effect toggling back to the initial facts.
	there := narrow.Apply(Effect{Positive: set(64, 1), Negative: set(64, 0)})
	back := there.Apply(Effect{Positive: set(64, 0), Negative: set(64, 1)})
	assert.Equal(t, 64, back.Len())
	assert.True(t, back.Equal(narrow))
	assert.False(t, there.Equal(narrow))
}

func TestCondition(t *testing.T) {
	c := Condition{Positive: set(5, 0, 1), Negative: set(5, 4)}
	d := Condition{Positive: set(5, 1, 2)}

	u := c.Union(d)
	assert.Equal(t, 4, u.Cardinality())
	assert.Equal(t, 3, c.Cardinality(), "receiver unchanged")
	assert.True(t, Condition{}.IsEmpty())
	assert.True(t, NewCondition(5).IsEmpty())
	assert.True(t, NewEffect(5).IsEmpty())
}

func TestAction_UnconditionalEffect(t *testing.T) {
	a := &Action{
		Parameters: []int{3, 4},
		Effects: []ConditionalEffect{
			{Effect: Effect{Positive: set(4, 0)}},
			{Condition: Condition{Positive: set(4, 3)}, Effect: Effect{Positive: set(4, 1)}},
			{Effect: Effect{Negative: set(4, 2)}},
		},
	}
	e := a.UnconditionalEffect()
	assert.True(t, e.Positive.Test(0))
	assert.False(t, e.Positive.Test(1))
	assert.True(t, e.Negative.Test(2))

	assert.Equal(t, 4, a.Parameter(1))
	assert.Equal(t, -1, a.Parameter(2))
	assert.Equal(t, -1, a.Parameter(-1))
}

func TestProblem_Validate(t *testing.T) {
	valid := func() *Problem {
		return &Problem{
			Name:    "p",
			Facts:   []string{"f0", "f1"},
			Objects: []string{"o0"},
			Actions: []*Action{{
				Index:        0,
				Name:         "a",
				Parameters:   []int{0},
				Precondition: Condition{Positive: set(2, 0)},
				Effects:      []ConditionalEffect{{Effect: Effect{Positive: set(2, 1)}}},
			}},
			Initial: NewState(2, 0),
			Goal:    Condition{Positive: set(2, 1)},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(p *Problem)
		target error
	}{
		{"missing initial state", func(p *Problem) { p.Initial = State{} }, ErrInvalidProblem},
		{"initial state size", func(p *Problem) { p.Initial = NewState(3) }, ErrInvalidProblem},
		{"goal out of range", func(p *Problem) { p.Goal = Condition{Positive: set(8, 7)} }, ErrInvalidProblem},
		{"index mismatch", func(p *Problem) { p.Actions[0].Index = 3 }, ErrInvalidProblem},
		{"effect out of range", func(p *Problem) {
			p.Actions[0].Effects[0].Effect.Negative = set(8, 5)
		}, ErrInvalidProblem},
		{"unknown parameter", func(p *Problem) { p.Actions[0].Parameters = []int{2} }, ErrUnknownObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			assert.ErrorIs(t, p.Validate(), tt.target)
		})
	}
}

func TestProblem_FormatAndFingerprint(t *testing.T) {
	p := &Problem{
		Facts:   []string{"f0"},
		Objects: []string{"a1", "l0"},
		Actions: []*Action{{Name: "move_agent", Parameters: []int{0, 1, 9}}},
		Initial: NewState(1),
	}
	assert.Equal(t, "(move_agent a1 l0 #9)", p.FormatAction(p.Actions[0]))

	q := &Problem{
		Facts:   []string{"f0"},
		Objects: []string{"a1", "l0"},
		Actions: []*Action{{Name: "move_agent", Parameters: []int{0, 1, 9}}},
		Initial: NewState(1, 0),
	}
	assert.Equal(t, p.Fingerprint(), p.Fingerprint())
	assert.NotEqual(t, p.Fingerprint(), q.Fingerprint(), "initial state is part of the fingerprint")
}

func TestEach(t *testing.T) {
	var got []int
	Each(set(130, 0, 64, 129), func(f int) { got = append(got, f) })
	assert.Equal(t, []int{0, 64, 129}, got)

	Each(nil, func(int) { t.Fatal("nil set is empty") })
}
