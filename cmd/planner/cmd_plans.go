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
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/storage/badger"
	"github.com/spf13/cobra"
)

func newPlansCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List plans cached in the plan store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			recs, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(a.stdout, "plans", start, recs, false)
			}
			newPrinter(a.stdout).records(recs)
			return nil
		},
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print as JSON")

	show := &cobra.Command{
		Use:   "show <fingerprint>",
		Short: "Print one cached plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			fp, err := badger.ParseFingerprint(args[0])
			if err != nil {
				return err
			}
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), fp)
			if err != nil {
				return err
			}
			if asJSON {
				return outputJSON(a.stdout, "plans show", start, rec, false)
			}
			newPrinter(a.stdout).record(*rec)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <fingerprint>",
		Short: "Remove one cached plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := badger.ParseFingerprint(args[0])
			if err != nil {
				return err
			}
			store, err := a.requireStore()
			if err != nil {
				return err
			}
			return store.Delete(cmd.Context(), fp)
		},
	}

	cmd.AddCommand(show, rm)
	return cmd
}
