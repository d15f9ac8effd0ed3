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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk form of a grounded problem.
//
// Facts and objects are referenced by name. When Facts is empty, facts are
// registered in order of first appearance; otherwise only listed facts may be
// referenced.
//
// Example (YAML):
//
//	name: one-box
//	objects: [a1, c1, b1, depot, food]
//	init: ["agent-at a1 l0", "box-empty b1"]
//	goal:
//	  positive: ["box-on b1 c1"]
//	actions:
//	  - name: fill_box_and_load_it_on_carrier
//	    parameters: [a1, c1, b1, depot, food]
//	    precondition:
//	      positive: ["box-empty b1"]
//	    effects:
//	      - add: ["box-on b1 c1"]
//	        delete: ["box-empty b1"]
type Document struct {
	Name    string           `json:"name" yaml:"name"`
	Objects []string         `json:"objects" yaml:"objects"`
	Facts   []string         `json:"facts,omitempty" yaml:"facts,omitempty"`
	Init    []string         `json:"init" yaml:"init"`
	Goal    LiteralsDocument `json:"goal" yaml:"goal"`
	Actions []ActionDocument `json:"actions" yaml:"actions"`
}

// LiteralsDocument is a pair of positive and negative fact name lists.
type LiteralsDocument struct {
	Positive []string `json:"positive,omitempty" yaml:"positive,omitempty"`
	Negative []string `json:"negative,omitempty" yaml:"negative,omitempty"`
}

// ActionDocument is the on-disk form of a ground action.
type ActionDocument struct {
	Name         string           `json:"name" yaml:"name"`
	Parameters   []string         `json:"parameters" yaml:"parameters"`
	Precondition LiteralsDocument `json:"precondition" yaml:"precondition"`
	Effects      []EffectDocument `json:"effects" yaml:"effects"`
}

// EffectDocument is the on-disk form of a conditional effect. An empty
// Condition makes the effect unconditional.
type EffectDocument struct {
	Condition LiteralsDocument `json:"condition,omitempty" yaml:"condition,omitempty"`
	Add       []string         `json:"add,omitempty" yaml:"add,omitempty"`
	Delete    []string         `json:"delete,omitempty" yaml:"delete,omitempty"`
}

// Load reads a problem document from a YAML or JSON file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse problem %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a problem document. YAML is tried first, then JSON.
func Parse(data []byte) (*Problem, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
			return nil, fmt.Errorf("decode (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return FromDocument(doc)
}

// FromDocument grounds a Document into a Problem.
func FromDocument(doc Document) (*Problem, error) {
	b := &builder{
		factIndex:   make(map[string]int),
		objectIndex: make(map[string]int, len(doc.Objects)),
		strict:      len(doc.Facts) > 0,
	}
	for i, o := range doc.Objects {
		if _, dup := b.objectIndex[o]; dup {
			return nil, fmt.Errorf("%w: duplicate object %q", ErrInvalidProblem, o)
		}
		b.objectIndex[o] = i
	}
	for _, f := range doc.Facts {
		if _, dup := b.factIndex[f]; dup {
			return nil, fmt.Errorf("%w: duplicate fact %q", ErrInvalidProblem, f)
		}
		b.factIndex[f] = len(b.facts)
		b.facts = append(b.facts, f)
	}

	// First pass registers every fact so all bitsets share one length.
	if !b.strict {
		b.register(doc.Init...)
		b.registerLiterals(doc.Goal)
		for _, a := range doc.Actions {
			b.registerLiterals(a.Precondition)
			for _, e := range a.Effects {
				b.registerLiterals(e.Condition)
				b.register(e.Add...)
				b.register(e.Delete...)
			}
		}
	}

	init, err := b.set(doc.Init)
	if err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	goal, err := b.condition(doc.Goal)
	if err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}

	p := &Problem{
		Name:    doc.Name,
		Facts:   b.facts,
		Objects: append([]string(nil), doc.Objects...),
		Actions: make([]*Action, 0, len(doc.Actions)),
		Initial: StateOf(init),
		Goal:    goal,
	}

	for i, ad := range doc.Actions {
		a, err := b.action(i, ad)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, ad.Name, err)
		}
		p.Actions = append(p.Actions, a)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// builder resolves names to indices while grounding a Document.
type builder struct {
	facts       []string
	factIndex   map[string]int
	objectIndex map[string]int
	strict      bool
}

func (b *builder) register(names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if _, ok := b.factIndex[n]; !ok {
			b.factIndex[n] = len(b.facts)
			b.facts = append(b.facts, n)
		}
	}
}

func (b *builder) registerLiterals(l LiteralsDocument) {
	b.register(l.Positive...)
	b.register(l.Negative...)
}

func (b *builder) set(names []string) (*bitset.BitSet, error) {
	out := bitset.New(uint(len(b.facts)))
	for _, n := range names {
		i, ok := b.factIndex[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFact, n)
		}
		out.Set(uint(i))
	}
	return out, nil
}

func (b *builder) condition(l LiteralsDocument) (Condition, error) {
	pos, err := b.set(l.Positive)
	if err != nil {
		return Condition{}, err
	}
	neg, err := b.set(l.Negative)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Positive: pos, Negative: neg}, nil
}

func (b *builder) action(index int, ad ActionDocument) (*Action, error) {
	pre, err := b.condition(ad.Precondition)
	if err != nil {
		return nil, fmt.Errorf("precondition: %w", err)
	}
	params := make([]int, len(ad.Parameters))
	for i, name := range ad.Parameters {
		id, ok := b.objectIndex[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
		}
		params[i] = id
	}
	effects := make([]ConditionalEffect, 0, len(ad.Effects))
	for _, ed := range ad.Effects {
		cond, err := b.condition(ed.Condition)
		if err != nil {
			return nil, fmt.Errorf("effect condition: %w", err)
		}
		add, err := b.set(ed.Add)
		if err != nil {
			return nil, fmt.Errorf("effect add: %w", err)
		}
		del, err := b.set(ed.Delete)
		if err != nil {
			return nil, fmt.Errorf("effect delete: %w", err)
		}
		effects = append(effects, ConditionalEffect{
			Condition: cond,
			Effect:    Effect{Positive: add, Negative: del},
		})
	}
	return &Action{
		Index:        index,
		Name:         ad.Name,
		Parameters:   params,
		Precondition: pre,
		Effects:      effects,
	}, nil
}
