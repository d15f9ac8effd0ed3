// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/heuristic"
	"github.com/AleutianAI/AleutianPlanner/services/planner/node"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/AleutianAI/AleutianPlanner/services/planner/search"
	"github.com/spf13/cobra"
)

// roleSummary is one row of the object category table.
type roleSummary struct {
	Role    classifier.Role `json:"role"`
	Count   int             `json:"count"`
	Objects []string        `json:"objects"`
}

// objectRoles lists the roles one object was seen in.
type objectRoles struct {
	Object string            `json:"object"`
	Roles  []classifier.Role `json:"roles"`
}

// inspectReport describes how the planner sees a problem before search.
type inspectReport struct {
	Problem       string         `json:"problem"`
	Fingerprint   string         `json:"fingerprint"`
	Objects       int            `json:"objects"`
	Facts         int            `json:"facts"`
	Actions       int            `json:"actions"`
	ActionTypes   map[string]int `json:"action_types"`
	Roles         []roleSummary  `json:"roles"`
	ObjectRoles   []objectRoles  `json:"object_roles"`
	Recognised    bool           `json:"recognised"`
	ContainerCap  int            `json:"container_bound"`
	MoverCap      int            `json:"mover_bound"`
	RootEstimate  string         `json:"root_estimate"`
	GoalLiterals  int            `json:"goal_literals"`
	Supported     bool           `json:"supported"`
	SupportReason string         `json:"unsupported_reason,omitempty"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <problem.yaml>",
		Short: "Show the object categories and root estimate of a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			report := inspect(p)
			if asJSON {
				return outputJSON(a.stdout, "inspect", start, report, false)
			}
			newPrinter(a.stdout).inspect(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

// inspect classifies p and scores its initial state.
func inspect(p *problem.Problem) inspectReport {
	tbl := classifier.Classify(p.Actions)

	report := inspectReport{
		Problem:      p.Name,
		Fingerprint:  fmt.Sprintf("%016x", p.Fingerprint()),
		Objects:      len(p.Objects),
		Facts:        p.NumFacts(),
		Actions:      len(p.Actions),
		ActionTypes:  make(map[string]int),
		RootEstimate: heuristic.Infeasible.String(),
		Supported:    true,
	}

	for _, act := range p.Actions {
		report.ActionTypes[classifier.TypeOf(act).String()]++
	}
	for _, role := range classifier.AllRoles {
		rs := roleSummary{Role: role, Count: tbl.Count(role), Objects: []string{}}
		for _, id := range tbl.Members(role) {
			rs.Objects = append(rs.Objects, p.ObjectName(id))
		}
		report.Roles = append(report.Roles, rs)
	}
	report.Recognised = tbl.Recognised()
	for id, name := range p.Objects {
		roles := tbl.RoleOf(id)
		if roles == nil {
			roles = []classifier.Role{}
		}
		report.ObjectRoles = append(report.ObjectRoles, objectRoles{Object: name, Roles: roles})
	}

	if err := search.Validate(p); err != nil {
		report.Supported = false
		report.SupportReason = err.Error()
		return report
	}

	est := heuristic.New(p, tbl)
	report.ContainerCap, report.MoverCap = est.Bounds()
	report.GoalLiterals = est.GoalCardinality()
	report.RootEstimate = est.Estimate(node.NewRoot(p.Initial, node.NewLayout(tbl))).String()
	return report
}
