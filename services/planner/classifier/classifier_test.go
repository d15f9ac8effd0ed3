// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"testing"

	"github.com/AleutianAI/AleutianPlanner/services/planner/internal/problemtest"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionType(t *testing.T) {
	tests := []struct {
		name string
		want ActionType
	}{
		{"move_agent", ActionMoveAgent},
		{"MOVE_AGENT_AND_CARRIER", ActionMoveAgentAndCarrier},
		{"Fill_Box_And_Load_It_On_Carrier", ActionFillAndLoad},
		{"unload_box_deliver_its_content_and_reload_it_on_carrier", ActionDeliver},
		{"unload_empty_box_from_carrier", ActionUnloadEmpty},
		{"move", ActionUnknown},
		{"", ActionUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseActionType(tt.name))
		})
	}
}

func TestActionType_Schema(t *testing.T) {
	assert.True(t, ActionMoveAgent.IsMove())
	assert.True(t, ActionMoveAgentAndCarrier.IsMove())
	assert.False(t, ActionFillAndLoad.IsMove())
	assert.False(t, ActionUnknown.IsMove())

	assert.Equal(t, 6, ActionDeliver.Arity())
	assert.Equal(t, 0, ActionUnknown.Arity())
	assert.Nil(t, ActionUnknown.Roles())

	assert.Equal(t, 1, ActionFillAndLoad.Position(RoleCarrier))
	assert.Equal(t, -1, ActionMoveAgent.Position(RoleCarrier))
	assert.Equal(t, 2, ActionMoveAgentAndCarrier.Position(RoleLocation))
	assert.Equal(t, 3, ActionDeliver.Position(RoleContent))

	roles := ActionUnloadEmpty.Roles()
	roles[0] = RolePerson
	assert.Equal(t, RoleAgent, ActionUnloadEmpty.Roles()[0], "Roles returns a copy")

	assert.Equal(t, "unknown", ActionType(99).String())
}

func TestActionType_SchemaTable(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
	}{
		{"move_agent", []Role{RoleAgent, RoleLocation, RoleLocation}},
		{"move_agent_and_carrier", []Role{RoleAgent, RoleCarrier, RoleLocation, RoleLocation}},
		{"fill_box_and_load_it_on_carrier", []Role{RoleAgent, RoleCarrier, RoleContainer, RoleContainerSite, RoleContent}},
		{"unload_box_deliver_its_content_and_reload_it_on_carrier", []Role{RoleAgent, RoleCarrier, RoleContainer, RoleContent, RolePerson, RoleLocation}},
		{"unload_empty_box_from_carrier", []Role{RoleAgent, RoleCarrier, RoleContainer, RoleContainerSite}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := ParseActionType(tt.name)
			require.True(t, at.Known())
			assert.Equal(t, tt.name, at.String())
			assert.Equal(t, tt.roles, at.Roles())
		})
	}
}

func TestClassify_Delivery(t *testing.T) {
	p := problemtest.Build(t, problemtest.Delivery())
	tbl := Classify(p.Actions)
	// objects: a1 c1 b1 depot food p1 l0 l1
	want := map[Role][]int{
		RoleAgent:         {0},
		RoleCarrier:       {1},
		RoleContainer:     {2},
		RoleContainerSite: {3},
		RoleContent:       {4},
		RolePerson:        {5},
		RoleLocation:      {6, 7},
	}
	for role, ids := range want {
		assert.Equal(t, len(ids), tbl.Count(role), role)
		assert.Equal(t, ids, tbl.Members(role), role)
	}
	assert.True(t, tbl.Recognised())

	id, ok := tbl.At(RoleLocation, 1)
	require.True(t, ok)
	assert.Equal(t, 7, id)

	assert.Equal(t, []Role{RoleLocation}, tbl.RoleOf(6))
	assert.Empty(t, tbl.RoleOf(42))
}

func TestClassify_Edges(t *testing.T) {
	t.Run("unknown names ignored", func(t *testing.T) {
		tbl := Classify([]*problem.Action{
			{Name: "teleport", Parameters: []int{0, 1, 2}},
		})
		assert.False(t, tbl.Recognised())
		for _, r := range AllRoles {
			assert.Zero(t, tbl.Count(r))
		}
	})

	t.Run("absent role has no ordinals", func(t *testing.T) {
		tbl := Classify([]*problem.Action{
			{Name: "move_agent", Parameters: []int{3, 1, 2}},
		})
		assert.Equal(t, 1, tbl.Count(RoleAgent))
		assert.Zero(t, tbl.Count(RoleCarrier))
		_, ok := tbl.At(RoleCarrier, 0)
		assert.False(t, ok)
		_, ok = tbl.At(RoleAgent, -1)
		assert.False(t, ok)
		assert.Empty(t, tbl.Members(RoleCarrier))
	})

	t.Run("short parameter lists ignored", func(t *testing.T) {
		tbl := Classify([]*problem.Action{
			{Name: "fill_box_and_load_it_on_carrier", Parameters: []int{0, 1}},
		})
		assert.False(t, tbl.Recognised())
	})

	t.Run("members ascending and deduplicated", func(t *testing.T) {
		tbl := Classify([]*problem.Action{
			{Name: "move_agent", Parameters: []int{9, 5, 4}},
			{Name: "move_agent", Parameters: []int{2, 4, 5}},
			{Name: "move_agent", Parameters: []int{9, 4, 1}},
		})
		assert.Equal(t, []int{2, 9}, tbl.Members(RoleAgent))
		assert.Equal(t, []int{1, 4, 5}, tbl.Members(RoleLocation))
	})

	t.Run("object in several roles", func(t *testing.T) {
		tbl := Classify([]*problem.Action{
			{Name: "move_agent", Parameters: []int{0, 1, 2}},
			{Name: "move_agent_and_carrier", Parameters: []int{0, 1, 2, 3}},
		})
		assert.Equal(t, []Role{RoleCarrier, RoleLocation}, tbl.RoleOf(1))
	})
}
