// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package problemtest provides small grounded logistics problems shared by the
// planner tests.
package problemtest

import (
	"fmt"
	"testing"

	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/stretchr/testify/require"
)

// Build grounds doc and fails the test on error.
func Build(t testing.TB, doc problem.Document) *problem.Problem {
	t.Helper()
	p, err := problem.FromDocument(doc)
	require.NoError(t, err)
	return p
}

// FactIndex returns the index of a named fact and fails the test if absent.
func FactIndex(t testing.TB, p *problem.Problem, name string) int {
	t.Helper()
	for i, f := range p.Facts {
		if f == name {
			return i
		}
	}
	t.Fatalf("fact %q not found", name)
	return -1
}

// ActionNamed returns the first action whose formatted form matches, e.g.
// "(move_agent a1 l0 l1)".
func ActionNamed(t testing.TB, p *problem.Problem, formatted string) *problem.Action {
	t.Helper()
	for _, a := range p.Actions {
		if p.FormatAction(a) == formatted {
			return a
		}
	}
	t.Fatalf("action %q not found", formatted)
	return nil
}

// OneLoad is a one agent, one carrier, one box, one content, one location
// problem solved by a single fill-and-load action.
//
// The agent can also "move" between l0 and l0, which leaves the state
// unchanged.
func OneLoad() problem.Document {
	return problem.Document{
		Name:    "one-load",
		Objects: []string{"a1", "c1", "b1", "depot", "food", "l0"},
		Init:    []string{"agent-at a1 l0", "box-at b1 depot", "box-empty b1", "content-at food depot"},
		Goal: problem.LiteralsDocument{
			Positive: []string{"box-on b1 c1", "box-has b1 food"},
		},
		Actions: []problem.ActionDocument{
			{
				Name:       "move_agent",
				Parameters: []string{"a1", "l0", "l0"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"agent-at a1 l0"},
				},
				Effects: []problem.EffectDocument{
					{Add: []string{"agent-at a1 l0"}},
				},
			},
			{
				Name:       "fill_box_and_load_it_on_carrier",
				Parameters: []string{"a1", "c1", "b1", "depot", "food"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"agent-at a1 l0", "box-at b1 depot", "box-empty b1", "content-at food depot"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"box-on b1 c1", "box-has b1 food"},
						Delete: []string{"box-at b1 depot", "box-empty b1", "content-at food depot"},
					},
				},
			},
			{
				Name:       "unload_empty_box_from_carrier",
				Parameters: []string{"a1", "c1", "b1", "depot"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"box-on b1 c1", "box-empty b1"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"box-at b1 depot"},
						Delete: []string{"box-on b1 c1"},
					},
				},
			},
		},
	}
}

// Unreachable has four reachable states and a goal fact no action adds.
func Unreachable() problem.Document {
	return problem.Document{
		Name:    "unreachable",
		Objects: []string{"a1", "c1", "b1", "depot", "food", "l0", "l1"},
		Init:    []string{"agent-at a1 l0", "box-empty b1", "content-at food depot"},
		Goal: problem.LiteralsDocument{
			Positive: []string{"delivered food"},
		},
		Actions: []problem.ActionDocument{
			moveAgent("a1", "l0", "l1"),
			moveAgent("a1", "l1", "l0"),
			{
				Name:       "fill_box_and_load_it_on_carrier",
				Parameters: []string{"a1", "c1", "b1", "depot", "food"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"box-empty b1", "content-at food depot"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"box-on b1 c1", "box-has b1 food"},
						Delete: []string{"box-empty b1", "content-at food depot"},
					},
				},
			},
		},
	}
}

// Delivery needs a load, a joint agent and carrier move, and a delivery.
//
// Expected plan:
//
//	(fill_box_and_load_it_on_carrier a1 c1 b1 depot food)
//	(move_agent_and_carrier a1 c1 l0 l1)
//	(unload_box_deliver_its_content_and_reload_it_on_carrier a1 c1 b1 food p1 l1)
func Delivery() problem.Document {
	return problem.Document{
		Name:    "delivery",
		Objects: []string{"a1", "c1", "b1", "depot", "food", "p1", "l0", "l1"},
		Init: []string{
			"agent-at a1 l0", "carrier-at c1 l0", "box-at b1 depot", "box-empty b1",
			"content-at food depot", "person-at p1 l1",
		},
		Goal: problem.LiteralsDocument{
			Positive: []string{"has p1 food"},
		},
		Actions: []problem.ActionDocument{
			moveAgent("a1", "l0", "l1"),
			moveAgent("a1", "l1", "l0"),
			moveAgentAndCarrier("a1", "c1", "l0", "l1"),
			moveAgentAndCarrier("a1", "c1", "l1", "l0"),
			{
				Name:       "fill_box_and_load_it_on_carrier",
				Parameters: []string{"a1", "c1", "b1", "depot", "food"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"agent-at a1 l0", "carrier-at c1 l0", "box-at b1 depot", "box-empty b1", "content-at food depot"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"box-on b1 c1", "box-has b1 food"},
						Delete: []string{"box-at b1 depot", "box-empty b1", "content-at food depot"},
					},
				},
			},
			{
				Name:       "unload_box_deliver_its_content_and_reload_it_on_carrier",
				Parameters: []string{"a1", "c1", "b1", "food", "p1", "l1"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"agent-at a1 l1", "carrier-at c1 l1", "box-on b1 c1", "box-has b1 food", "person-at p1 l1"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"has p1 food", "box-empty b1"},
						Delete: []string{"box-has b1 food"},
					},
				},
			},
			{
				Name:       "unload_empty_box_from_carrier",
				Parameters: []string{"a1", "c1", "b1", "depot"},
				Precondition: problem.LiteralsDocument{
					Positive: []string{"agent-at a1 l0", "carrier-at c1 l0", "box-on b1 c1", "box-empty b1"},
				},
				Effects: []problem.EffectDocument{
					{
						Add:    []string{"box-at b1 depot"},
						Delete: []string{"box-on b1 c1"},
					},
				},
			},
		},
	}
}

// Counter is a binary counter over n bits: exactly one "increment" action is
// applicable in every state, and the goal needs all bits set plus a final
// "finish" action. The relaxed graph always reaches the goal while the real
// search needs 2^n steps, so for large n a solve can only end by timeout.
func Counter(n int) problem.Document {
	doc := problem.Document{
		Name:    fmt.Sprintf("counter-%d", n),
		Objects: []string{"a1", "c1", "b1", "depot", "food"},
		Init:    []string{},
		Goal: problem.LiteralsDocument{
			Positive: []string{"done"},
		},
	}
	// A recognised schema that is never applicable keeps the problem supported.
	doc.Actions = append(doc.Actions, problem.ActionDocument{
		Name:       "fill_box_and_load_it_on_carrier",
		Parameters: []string{"a1", "c1", "b1", "depot", "food"},
		Precondition: problem.LiteralsDocument{
			Positive: []string{"never"},
		},
		Effects: []problem.EffectDocument{{Add: []string{"box-on b1 c1"}}},
	})
	all := make([]string, 0, n)
	for i := 0; i < n; i++ {
		bit := fmt.Sprintf("bit-%d", i)
		lower := append([]string(nil), all...)
		doc.Actions = append(doc.Actions, problem.ActionDocument{
			Name:       "increment",
			Parameters: []string{"a1"},
			Precondition: problem.LiteralsDocument{
				Positive: lower,
				Negative: []string{bit},
			},
			Effects: []problem.EffectDocument{{Add: []string{bit}, Delete: lower}},
		})
		all = append(all, bit)
	}
	doc.Actions = append(doc.Actions, problem.ActionDocument{
		Name:         "finish",
		Parameters:   []string{"a1"},
		Precondition: problem.LiteralsDocument{Positive: all},
		Effects:      []problem.EffectDocument{{Add: []string{"done"}}},
	})
	return doc
}

func moveAgent(agent, from, to string) problem.ActionDocument {
	return problem.ActionDocument{
		Name:       "move_agent",
		Parameters: []string{agent, from, to},
		Precondition: problem.LiteralsDocument{
			Positive: []string{"agent-at " + agent + " " + from},
		},
		Effects: []problem.EffectDocument{
			{
				Add:    []string{"agent-at " + agent + " " + to},
				Delete: []string{"agent-at " + agent + " " + from},
			},
		},
	}
}

func moveAgentAndCarrier(agent, carrier, from, to string) problem.ActionDocument {
	return problem.ActionDocument{
		Name:       "move_agent_and_carrier",
		Parameters: []string{agent, carrier, from, to},
		Precondition: problem.LiteralsDocument{
			Positive: []string{"agent-at " + agent + " " + from, "carrier-at " + carrier + " " + from},
		},
		Effects: []problem.EffectDocument{
			{
				Add:    []string{"agent-at " + agent + " " + to, "carrier-at " + carrier + " " + to},
				Delete: []string{"agent-at " + agent + " " + from, "carrier-at " + carrier + " " + from},
			},
		},
	}
}
