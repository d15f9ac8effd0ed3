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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Every problem solved
	CLIExitFindings = 1 // At least one problem without a plan
	CLIExitError    = 2 // Operation failed
)

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string      `json:"api_version"`
	Command    string      `json:"command"`
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"duration_ms"`
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// outputJSON writes data wrapped in a CommandResult.
//
// # Inputs
//
//   - w: Destination.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The data to encode. Must be JSON-serializable.
//   - compact: If true, output without indentation.
func outputJSON(w io.Writer, cmd string, start time.Time, data interface{}, compact bool) error {
	result := CommandResult{
		APIVersion: "1.0",
		Command:    cmd,
		Timestamp:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
		Success:    true,
		Data:       data,
	}
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(result)
}

// Aleutian palette
var (
	colorTealBright  = lipgloss.Color("#2CD7C7")
	colorTealPrimary = lipgloss.Color("#20B9B4")
	colorTealDeep    = lipgloss.Color("#16858E")
	colorSlate       = lipgloss.Color("#2C4A54")
	colorWarning     = lipgloss.Color("#F4D03F")
	colorError       = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Step    lipgloss.Style
	Header  lipgloss.Style
	Border  lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorTealBright),
	Muted:   lipgloss.NewStyle().Foreground(colorSlate),
	Success: lipgloss.NewStyle().Foreground(colorTealBright),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Error:   lipgloss.NewStyle().Foreground(colorError),
	Step:    lipgloss.NewStyle().Foreground(colorTealPrimary),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(colorTealBright).Padding(0, 1),
	Border:  lipgloss.NewStyle().Foreground(colorTealDeep),
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// printer renders human-readable output, styled only on a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, styled: isTerminal(w)}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) outcome(o solveOutcome) {
	name := o.Problem
	if name == "" {
		name = o.Path
	}

	switch {
	case o.err != nil:
		fmt.Fprintf(p.w, "%s %s  %s\n", p.render(styles.Error, "✗"), p.render(styles.Title, name), o.Error)
		return
	case o.Found:
		fmt.Fprintf(p.w, "%s %s  %s\n", p.render(styles.Success, "✓"), p.render(styles.Title, name), p.stats(o))
	default:
		fmt.Fprintf(p.w, "%s %s  %s\n", p.render(styles.Warning, "⚠"), p.render(styles.Title, name), p.stats(o))
	}
	for i, step := range o.Plan {
		fmt.Fprintf(p.w, "  %s %s\n", p.render(styles.Muted, fmt.Sprintf("%3d.", i+1)), p.render(styles.Step, step))
	}
}

func (p *printer) stats(o solveOutcome) string {
	parts := []string{string(o.Reason)}
	if o.Found {
		parts = append(parts, fmt.Sprintf("cost %d", len(o.Plan)))
	}
	parts = append(parts, fmt.Sprintf("explored %d", o.Explored))
	if o.Cached {
		parts = append(parts, "cached")
	} else {
		parts = append(parts, fmt.Sprintf("frontier %.1f KB", o.FrontierKB), fmt.Sprintf("%d ms", o.ElapsedMs))
	}
	return p.render(styles.Muted, strings.Join(parts, "  "))
}

func (p *printer) table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...)
	if p.styled {
		t = t.BorderStyle(styles.Border).StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	} else {
		t = t.StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})
	}
	return t.String()
}

func (p *printer) inspect(r inspectReport) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(styles.Title, r.Problem), p.render(styles.Muted, r.Fingerprint))
	fmt.Fprintf(p.w, "%d objects, %d facts, %d actions\n\n", r.Objects, r.Facts, r.Actions)

	rows := make([][]string, 0, len(r.Roles))
	for _, rs := range r.Roles {
		rows = append(rows, []string{string(rs.Role), strconv.Itoa(rs.Count), strings.Join(rs.Objects, " ")})
	}
	fmt.Fprintln(p.w, p.table([]string{"ROLE", "COUNT", "OBJECTS"}, rows))

	rows = make([][]string, 0, len(r.ObjectRoles))
	for _, o := range r.ObjectRoles {
		roles := "-"
		if len(o.Roles) > 0 {
			names := make([]string, len(o.Roles))
			for i, role := range o.Roles {
				names[i] = string(role)
			}
			roles = strings.Join(names, ", ")
		}
		rows = append(rows, []string{o.Object, roles})
	}
	fmt.Fprintln(p.w, p.table([]string{"OBJECT", "ROLES"}, rows))

	types := make([]string, 0, len(r.ActionTypes))
	for t := range r.ActionTypes {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(p.w, "  %-32s %d\n", t, r.ActionTypes[t])
	}
	fmt.Fprintln(p.w)

	if !r.Supported {
		fmt.Fprintf(p.w, "%s %s\n", p.render(styles.Error, "✗"), r.SupportReason)
		return
	}
	fmt.Fprintf(p.w, "container bound %d, mover bound %d, goal literals %d\n", r.ContainerCap, r.MoverCap, r.GoalLiterals)
	fmt.Fprintf(p.w, "root estimate %s\n", p.render(styles.Success, r.RootEstimate))
}

func (p *printer) records(recs []badger.PlanRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(p.w, p.render(styles.Muted, "no cached plans"))
		return
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			fmt.Sprintf("%016x", r.Fingerprint),
			r.Problem,
			string(r.Reason),
			strconv.Itoa(r.Cost()),
			strconv.Itoa(r.ExploredNodes),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	fmt.Fprintln(p.w, p.table([]string{"FINGERPRINT", "PROBLEM", "REASON", "COST", "EXPLORED", "CREATED"}, rows))
}

func (p *printer) record(r badger.PlanRecord) {
	p.outcome(solveOutcome{
		Problem:  r.Problem,
		Cached:   true,
		Found:    r.Found,
		Reason:   r.Reason,
		Plan:     r.Actions,
		Explored: r.ExploredNodes,
	})
}
