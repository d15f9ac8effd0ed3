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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneBoxYAML = `
name: one-box
objects: [a1, c1, b1, depot, food]
init: ["agent-at a1 l0", "box-empty b1", "content-at food depot"]
goal:
  positive: ["box-on b1 c1"]
actions:
  - name: fill_box_and_load_it_on_carrier
    parameters: [a1, c1, b1, depot, food]
    precondition:
      positive: ["box-empty b1", "content-at food depot"]
    effects:
      - add: ["box-on b1 c1", "box-has b1 food"]
        delete: ["box-empty b1", "content-at food depot"]
      - condition:
          negative: ["agent-at a1 l0"]
        add: ["lonely c1"]
`

const oneBoxJSON = `{
  "name": "one-box",
  "objects": ["a1", "c1", "b1", "depot", "food"],
  "init": ["agent-at a1 l0", "box-empty b1", "content-at food depot"],
  "goal": {"positive": ["box-on b1 c1"]},
  "actions": [{
    "name": "fill_box_and_load_it_on_carrier",
    "parameters": ["a1", "c1", "b1", "depot", "food"],
    "precondition": {"positive": ["box-empty b1", "content-at food depot"]},
    "effects": [{"add": ["box-on b1 c1"], "delete": ["box-empty b1"]}]
  }]
}`

func TestParse_YAML(t *testing.T) {
	p, err := Parse([]byte(oneBoxYAML))
	require.NoError(t, err)

	assert.Equal(t, "one-box", p.Name)
	assert.Equal(t, []string{
		"agent-at a1 l0", "box-empty b1", "content-at food depot",
		"box-on b1 c1", "box-has b1 food", "lonely c1",
	}, p.Facts, "facts in order of first appearance")
	require.Len(t, p.Actions, 1)

	a := p.Actions[0]
	assert.Equal(t, []int{0, 1, 2, 3, 4}, a.Parameters)
	assert.Equal(t, 2, a.Precondition.Cardinality())
	require.Len(t, a.Effects, 2)
	assert.True(t, a.Effects[0].Condition.IsEmpty())
	assert.Equal(t, 1, a.Effects[1].Condition.Cardinality())

	assert.True(t, p.Initial.Holds(0))
	assert.Equal(t, 3, p.Initial.Count())
	assert.False(t, p.Initial.Satisfies(p.Goal))

	next := p.Initial.Progress(a)
	assert.True(t, next.Satisfies(p.Goal))
	assert.False(t, next.Holds(5), "conditional effect did not fire")
}

func TestParse_JSON(t *testing.T) {
	p, err := Parse([]byte(oneBoxJSON))
	require.NoError(t, err)
	assert.Equal(t, "one-box", p.Name)
	assert.Len(t, p.Actions, 1)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		doc    Document
		target error
	}{
		{
			name:   "duplicate object",
			doc:    Document{Objects: []string{"a", "a"}},
			target: ErrInvalidProblem,
		},
		{
			name:   "duplicate fact",
			doc:    Document{Facts: []string{"f", "f"}},
			target: ErrInvalidProblem,
		},
		{
			name: "unknown object",
			doc: Document{
				Objects: []string{"a"},
				Actions: []ActionDocument{{Name: "x", Parameters: []string{"b"}}},
			},
			target: ErrUnknownObject,
		},
		{
			name: "undeclared fact in strict mode",
			doc: Document{
				Facts: []string{"f"},
				Init:  []string{"g"},
			},
			target: ErrUnknownFact,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromDocument(tt.doc)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := Parse([]byte("{not yaml: [nor json"))
	assert.Error(t, err)
}

func TestFromDocument_StrictFacts(t *testing.T) {
	p, err := FromDocument(Document{
		Objects: []string{"a"},
		Facts:   []string{"z", "y", "x"},
		Init:    []string{"x"},
		Goal:    LiteralsDocument{Negative: []string{"z"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "y", "x"}, p.Facts)
	assert.True(t, p.Initial.Holds(2))
	assert.True(t, p.Initial.Satisfies(p.Goal))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one-box.yaml")
	require.NoError(t, os.WriteFile(path, []byte(oneBoxYAML), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "one-box", p.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
