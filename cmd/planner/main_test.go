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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oneLoadFile     = "testdata/one-load.yaml"
	unreachableFile = "testdata/unreachable.yaml"
	teleportFile    = "testdata/teleport.yaml"
	oneLoadStep     = "(fill_box_and_load_it_on_carrier a1 c1 b1 depot food)"
)

// run executes the CLI and returns the exit code and captured output.
func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// decode unwraps a CommandResult envelope into data.
func decode(t *testing.T, out string, data interface{}) CommandResult {
	t.Helper()
	var envelope struct {
		CommandResult
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &envelope), out)
	require.NoError(t, json.Unmarshal(envelope.Data, data))
	return envelope.CommandResult
}

func TestSolve_PrintsPlan(t *testing.T) {
	code, out, _ := run(t, "solve", "--log-level", "error", oneLoadFile)

	assert.Equal(t, CLIExitSuccess, code)
	assert.Contains(t, out, "✓ one-load")
	assert.Contains(t, out, "solved")
	assert.Contains(t, out, "cost 1")
	assert.Contains(t, out, "1. "+oneLoadStep)
	assert.NotContains(t, out, "\x1b[", "no ANSI styling off a terminal")
}

func TestSolve_JSON(t *testing.T) {
	code, out, _ := run(t, "solve", "--json", "--log-level", "error", oneLoadFile)
	require.Equal(t, CLIExitSuccess, code)

	var outcomes []solveOutcome
	res := decode(t, out, &outcomes)
	assert.Equal(t, "solve", res.Command)
	assert.True(t, res.Success)

	require.Len(t, outcomes, 1)
	o := outcomes[0]
	assert.True(t, o.Found)
	assert.False(t, o.Cached)
	assert.Equal(t, "solved", string(o.Reason))
	assert.Equal(t, []string{oneLoadStep}, o.Plan)
	assert.Equal(t, 2, o.Explored)
	assert.Len(t, o.Fingerprint, 16)
	assert.NotEmpty(t, o.RunID)
}

func TestSolve_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		out  string
	}{
		{"unsolved", []string{unreachableFile}, CLIExitFindings, "⚠ unreachable"},
		{"batch with one unsolved", []string{"--concurrency", "2", oneLoadFile, unreachableFile}, CLIExitFindings, "✓ one-load"},
		{"unsupported problem", []string{teleportFile}, CLIExitError, "no action matches a recognised schema"},
		{"missing file", []string{"testdata/nope.yaml"}, CLIExitError, "✗ testdata/nope.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"solve", "--log-level", "error"}, tt.args...)
			code, out, _ := run(t, args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, out, tt.out)
		})
	}
}

func TestSolve_Limits(t *testing.T) {
	code, out, _ := run(t, "solve", "--json", "--log-level", "error", "--max-explored", "1", unreachableFile)
	assert.Equal(t, CLIExitFindings, code)

	var outcomes []solveOutcome
	decode(t, out, &outcomes)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "limit", string(outcomes[0].Reason))
	assert.Equal(t, 1, outcomes[0].Explored)
}

func TestSolve_LogsToStderr(t *testing.T) {
	_, _, errOut := run(t, "solve", "--log-json", oneLoadFile)
	assert.Contains(t, errOut, `"msg":"plan found"`)
	assert.Contains(t, errOut, `"component":"search"`)
	assert.Contains(t, errOut, `"service":"planner"`)
}

func TestSolve_PlanStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plans")

	code, out, _ := run(t, "solve", "--json", "--log-level", "error", "--store-path", dir, oneLoadFile)
	require.Equal(t, CLIExitSuccess, code)
	var first []solveOutcome
	decode(t, out, &first)
	require.Len(t, first, 1)
	assert.False(t, first[0].Cached)
	fp := first[0].Fingerprint

	t.Run("second solve is cached", func(t *testing.T) {
		code, out, _ := run(t, "solve", "--json", "--log-level", "error", "--store-path", dir, oneLoadFile)
		require.Equal(t, CLIExitSuccess, code)
		var again []solveOutcome
		decode(t, out, &again)
		require.Len(t, again, 1)
		assert.True(t, again[0].Cached)
		assert.Equal(t, first[0].Plan, again[0].Plan)
		assert.Equal(t, first[0].RunID, again[0].RunID)
	})

	t.Run("no-cache searches again", func(t *testing.T) {
		code, out, _ := run(t, "solve", "--json", "--log-level", "error", "--no-cache", "--store-path", dir, oneLoadFile)
		require.Equal(t, CLIExitSuccess, code)
		var fresh []solveOutcome
		decode(t, out, &fresh)
		assert.False(t, fresh[0].Cached)
	})

	t.Run("plans lists and shows", func(t *testing.T) {
		code, out, _ := run(t, "plans", "--log-level", "error", "--store-path", dir)
		require.Equal(t, CLIExitSuccess, code)
		assert.Contains(t, out, fp)
		assert.Contains(t, out, "one-load")

		code, out, _ = run(t, "plans", "show", fp, "--log-level", "error", "--store-path", dir)
		require.Equal(t, CLIExitSuccess, code)
		assert.Contains(t, out, oneLoadStep)
		assert.Contains(t, out, "cached")
	})

	t.Run("plans rm", func(t *testing.T) {
		code, _, _ := run(t, "plans", "rm", fp, "--log-level", "error", "--store-path", dir)
		require.Equal(t, CLIExitSuccess, code)

		code, out, _ := run(t, "plans", "--log-level", "error", "--store-path", dir)
		require.Equal(t, CLIExitSuccess, code)
		assert.Contains(t, out, "no cached plans")

		code, _, errOut := run(t, "plans", "show", fp, "--log-level", "error", "--store-path", dir)
		assert.Equal(t, CLIExitError, code)
		assert.Contains(t, errOut, "plan not found")
	})
}

func TestUnsolvedPlansAreNotCached(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := run(t, "solve", "--log-level", "error", "--store-path", dir, unreachableFile)
	require.Equal(t, CLIExitFindings, code)

	code, out, _ := run(t, "plans", "--json", "--log-level", "error", "--store-path", dir)
	require.Equal(t, CLIExitSuccess, code)
	var recs []json.RawMessage
	decode(t, out, &recs)
	assert.Empty(t, recs)
}

func TestInspect(t *testing.T) {
	code, out, _ := run(t, "inspect", "--log-level", "error", oneLoadFile)
	require.Equal(t, CLIExitSuccess, code)

	assert.Contains(t, out, "one-load")
	assert.Contains(t, out, "6 objects")
	assert.Contains(t, out, "agent")
	assert.Contains(t, out, "fill_box_and_load_it_on_carrier")
	assert.Contains(t, out, "root estimate 2")
}

func TestInspect_JSON(t *testing.T) {
	code, out, _ := run(t, "inspect", "--json", "--log-level", "error", oneLoadFile)
	require.Equal(t, CLIExitSuccess, code)

	var report inspectReport
	decode(t, out, &report)
	assert.True(t, report.Supported)
	assert.Equal(t, "2", report.RootEstimate)
	assert.Equal(t, 1, report.ContainerCap)
	assert.Equal(t, 1, report.MoverCap)
	assert.Equal(t, 1, report.ActionTypes["move_agent"])

	roles := map[string][]string{}
	for _, rs := range report.Roles {
		roles[string(rs.Role)] = rs.Objects
	}
	assert.Equal(t, []string{"a1"}, roles["agent"])
	assert.Equal(t, []string{"c1"}, roles["carrier"])
	assert.Equal(t, []string{"b1"}, roles["container"])
	assert.Equal(t, []string{"depot"}, roles["container-site"])
	assert.Equal(t, []string{"food"}, roles["content"])
	assert.Empty(t, roles["person"])

	assert.True(t, report.Recognised)
	byObject := map[string][]string{}
	for _, o := range report.ObjectRoles {
		names := []string{}
		for _, r := range o.Roles {
			names = append(names, string(r))
		}
		byObject[o.Object] = names
	}
	assert.Len(t, byObject, 6)
	assert.Equal(t, []string{"agent"}, byObject["a1"])
	assert.Equal(t, []string{"container-site"}, byObject["depot"])
	assert.Equal(t, []string{"location"}, byObject["l0"])
}

func TestInspect_ObjectRoles(t *testing.T) {
	code, out, _ := run(t, "inspect", "--log-level", "error", oneLoadFile)
	require.Equal(t, CLIExitSuccess, code)
	assert.Contains(t, out, "OBJECT")
	assert.Contains(t, out, "ROLES")
	assert.Contains(t, out, "container-site")

	code, out, _ = run(t, "inspect", "--json", "--log-level", "error", teleportFile)
	require.Equal(t, CLIExitSuccess, code)
	var report inspectReport
	decode(t, out, &report)
	assert.False(t, report.Recognised)
	assert.False(t, report.Supported)
	require.Len(t, report.ObjectRoles, 3)
	for _, o := range report.ObjectRoles {
		assert.Empty(t, o.Roles, o.Object)
	}
}

func TestInspect_Unsupported(t *testing.T) {
	code, out, _ := run(t, "inspect", "--log-level", "error", teleportFile)
	require.Equal(t, CLIExitSuccess, code)
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "no action matches a recognised schema")
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown command", []string{"fly"}, "unknown command"},
		{"missing argument", []string{"solve"}, "requires at least 1 arg"},
		{"invalid log level", []string{"solve", "--log-level", "loud", oneLoadFile}, "invalid config"},
		{"bad metrics address", []string{"solve", "--metrics-addr", "nowhere", oneLoadFile}, "invalid config"},
		{"missing config file", []string{"solve", "--config", "testdata/nope.yaml", oneLoadFile}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, tt.args...)
			if tt.msg == "" {
				// a missing config file falls back to defaults
				assert.Equal(t, CLIExitSuccess, code)
				return
			}
			assert.Equal(t, CLIExitError, code)
			assert.Contains(t, errOut, tt.msg)
		})
	}
}
