// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planner solves grounded delivery planning problems.
//
// Usage:
//
//	planner solve problems/one-box.yaml
//	planner solve --timeout 30s --concurrency 4 problems/*.yaml
//	planner solve --store --json problems/one-box.yaml
//	planner inspect problems/one-box.yaml
//	planner plans --store-path ~/.aleutian/planner/plans
//
// Exit codes: 0 when every problem is solved, 1 when at least one problem
// has no plan, 2 on errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root, a := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); closeErr != nil {
		fmt.Fprintf(stderr, "Error: shutdown: %v\n", closeErr)
	}

	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return CLIExitError
	}
	return CLIExitSuccess
}

// exitError ends a command with a non-zero exit code after its output has
// already been written.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	return fmt.Sprintf("%s (exit %d)", e.msg, e.code)
}
