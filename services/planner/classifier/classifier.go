// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier partitions the objects of a grounded logistics problem
// into semantic roles by reading the parameter positions of five known action
// schemas.
//
// Schema table, parameter positions p0..p5:
//
//	action                                                   p0     p1        p2         p3              p4       p5
//	move_agent                                               agent  location  location
//	move_agent_and_carrier                                   agent  carrier   location   location
//	fill_box_and_load_it_on_carrier                          agent  carrier   container  container-site  content
//	unload_box_deliver_its_content_and_reload_it_on_carrier  agent  carrier   container  content         person   location
//	unload_empty_box_from_carrier                            agent  carrier   container  container-site
//
// Actions with any other name are ignored.
package classifier

import (
	"slices"
	"strings"

	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
)

// -----------------------------------------------------------------------------
// Roles
// -----------------------------------------------------------------------------

// Role is the semantic category of a problem object.
type Role string

const (
	RoleAgent         Role = "agent"
	RoleCarrier       Role = "carrier"
	RoleContainer     Role = "container"
	RoleContainerSite Role = "container-site"
	RoleContent       Role = "content"
	RolePerson        Role = "person"
	RoleLocation      Role = "location"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleAgent, RoleCarrier, RoleContainer, RoleContainerSite,
	RoleContent, RolePerson, RoleLocation,
}

// -----------------------------------------------------------------------------
// Action Types
// -----------------------------------------------------------------------------

// ActionType identifies one of the five recognised action schemas.
type ActionType int

const (
	ActionUnknown ActionType = iota
	ActionMoveAgent
	ActionMoveAgentAndCarrier
	ActionFillAndLoad
	ActionDeliver
	ActionUnloadEmpty

	// NumActionTypes sizes per-type counter arrays, ActionUnknown included.
	NumActionTypes
)

var actionNames = [NumActionTypes]string{
	ActionUnknown:             "unknown",
	ActionMoveAgent:           "move_agent",
	ActionMoveAgentAndCarrier: "move_agent_and_carrier",
	ActionFillAndLoad:         "fill_box_and_load_it_on_carrier",
	ActionDeliver:             "unload_box_deliver_its_content_and_reload_it_on_carrier",
	ActionUnloadEmpty:         "unload_empty_box_from_carrier",
}

// schemas maps each action type to the role of each parameter position.
var schemas = [NumActionTypes][]Role{
	ActionUnknown:             nil,
	ActionMoveAgent:           {RoleAgent, RoleLocation, RoleLocation},
	ActionMoveAgentAndCarrier: {RoleAgent, RoleCarrier, RoleLocation, RoleLocation},
	ActionFillAndLoad:         {RoleAgent, RoleCarrier, RoleContainer, RoleContainerSite, RoleContent},
	ActionDeliver:             {RoleAgent, RoleCarrier, RoleContainer, RoleContent, RolePerson, RoleLocation},
	ActionUnloadEmpty:         {RoleAgent, RoleCarrier, RoleContainer, RoleContainerSite},
}

var typeByName = func() map[string]ActionType {
	m := make(map[string]ActionType, NumActionTypes)
	for t := ActionMoveAgent; t < NumActionTypes; t++ {
		m[actionNames[t]] = t
	}
	return m
}()

// ParseActionType returns the schema for an action name, case-insensitively.
func ParseActionType(name string) ActionType {
	if t, ok := typeByName[strings.ToLower(name)]; ok {
		return t
	}
	return ActionUnknown
}

// TypeOf returns the schema of a ground action.
func TypeOf(a *problem.Action) ActionType {
	if a == nil {
		return ActionUnknown
	}
	return ParseActionType(a.Name)
}

// String returns the schema name.
func (t ActionType) String() string {
	if t < 0 || t >= NumActionTypes {
		return actionNames[ActionUnknown]
	}
	return actionNames[t]
}

// Known reports whether t is one of the five recognised schemas.
func (t ActionType) Known() bool {
	return t > ActionUnknown && t < NumActionTypes
}

// IsMove reports whether t relocates the agent.
func (t ActionType) IsMove() bool {
	return t == ActionMoveAgent || t == ActionMoveAgentAndCarrier
}

// Roles returns the role of each parameter position. Nil for unknown types.
func (t ActionType) Roles() []Role {
	if !t.Known() {
		return nil
	}
	return slices.Clone(schemas[t])
}

// Arity returns the number of parameters the schema expects.
func (t ActionType) Arity() int {
	if !t.Known() {
		return 0
	}
	return len(schemas[t])
}

// Position returns the first parameter position holding role, or -1.
func (t ActionType) Position(role Role) int {
	if !t.Known() {
		return -1
	}
	return slices.Index(schemas[t], role)
}

// -----------------------------------------------------------------------------
// Category Table
// -----------------------------------------------------------------------------

// Table maps every role to the ascending set of object ids seen in it.
//
// Thread Safety: Safe to read concurrently. Not modified after Classify.
type Table struct {
	members map[Role][]int
	roles   map[int][]Role
}

// Classify builds the category table from the ground actions of a problem.
//
// Actions with an unrecognised name, or with fewer parameters than their
// schema, contribute nothing.
func Classify(actions []*problem.Action) *Table {
	seen := make(map[Role]map[int]struct{}, len(AllRoles))
	for _, a := range actions {
		t := TypeOf(a)
		if !t.Known() || len(a.Parameters) < t.Arity() {
			continue
		}
		for pos, role := range schemas[t] {
			if seen[role] == nil {
				seen[role] = make(map[int]struct{})
			}
			seen[role][a.Parameters[pos]] = struct{}{}
		}
	}

	tbl := &Table{
		members: make(map[Role][]int, len(seen)),
		roles:   make(map[int][]Role),
	}
	for _, role := range AllRoles {
		set := seen[role]
		if len(set) == 0 {
			continue
		}
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		tbl.members[role] = ids
		for _, id := range ids {
			tbl.roles[id] = append(tbl.roles[id], role)
		}
	}
	return tbl
}

// Count returns the number of objects in role. Zero for absent roles.
func (t *Table) Count(role Role) int {
	return len(t.members[role])
}

// At returns the object at ordinal i within role, in ascending id order.
func (t *Table) At(role Role, i int) (int, bool) {
	ids := t.members[role]
	if i < 0 || i >= len(ids) {
		return 0, false
	}
	return ids[i], true
}

// Members returns a copy of the ordered ids in role.
func (t *Table) Members(role Role) []int {
	return slices.Clone(t.members[role])
}

// RoleOf returns every role the object was seen in, in AllRoles order.
func (t *Table) RoleOf(id int) []Role {
	return slices.Clone(t.roles[id])
}

// Recognised reports whether at least one action matched a known schema.
func (t *Table) Recognised() bool {
	return len(t.members) > 0
}
