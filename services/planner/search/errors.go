// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/AleutianPlanner/services/planner/classifier"
	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
)

// Package-level error definitions.
var (
	// ErrUnsupportedProblem is returned before search starts when the problem
	// breaks an assumption the engine relies on.
	ErrUnsupportedProblem = errors.New("unsupported problem")
)

// SearchError wraps an error with the operation that produced it.
type SearchError struct {
	Op  string
	Err error
}

func (e *SearchError) Error() string {
	return "search." + e.Op + ": " + e.Err.Error()
}

func (e *SearchError) Unwrap() error {
	return e.Err
}

// checkSupported rejects problems the engine cannot search.
//
// A problem is supported when it is structurally valid, has at least one
// action, at least one action matches a recognised schema, and every such
// action carries the parameters its schema names.
func checkSupported(p *problem.Problem) error {
	if p == nil {
		return &SearchError{Op: "validate", Err: fmt.Errorf("%w: nil problem", ErrUnsupportedProblem)}
	}
	if err := p.Validate(); err != nil {
		return &SearchError{Op: "validate", Err: fmt.Errorf("%w: %w", ErrUnsupportedProblem, err)}
	}
	if len(p.Actions) == 0 {
		return &SearchError{Op: "validate", Err: fmt.Errorf("%w: no actions", ErrUnsupportedProblem)}
	}
	recognised := 0
	for _, a := range p.Actions {
		t := classifier.TypeOf(a)
		if !t.Known() {
			continue
		}
		recognised++
		if len(a.Parameters) < t.Arity() {
			return &SearchError{Op: "validate", Err: fmt.Errorf("%w: %s has %d parameters, schema needs %d",
				ErrUnsupportedProblem, p.FormatAction(a), len(a.Parameters), t.Arity())}
		}
	}
	if recognised == 0 {
		return &SearchError{Op: "validate", Err: fmt.Errorf("%w: no action matches a recognised schema", ErrUnsupportedProblem)}
	}
	return nil
}

// Validate reports whether Solve would accept p, without searching.
//
// Outputs:
//   - error: nil, or a *SearchError wrapping ErrUnsupportedProblem.
func Validate(p *problem.Problem) error {
	return checkSupported(p)
}
