// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianPlanner/services/planner/problem"
	"github.com/AleutianAI/AleutianPlanner/services/planner/search"
	"github.com/dgraph-io/badger/v4"
)

// ErrPlanNotFound is returned when no plan is cached for a fingerprint.
var ErrPlanNotFound = errors.New("plan not found")

var planPrefix = []byte("plan/")

// PlanRecord is one cached solve outcome.
type PlanRecord struct {
	Fingerprint   uint64        `json:"fingerprint"`
	Problem       string        `json:"problem"`
	RunID         string        `json:"run_id"`
	Found         bool          `json:"found"`
	Reason        search.Reason `json:"reason"`
	Actions       []string      `json:"actions,omitempty"`
	ExploredNodes int           `json:"explored_nodes"`
	Elapsed       time.Duration `json:"elapsed"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Cost is the number of actions in the plan.
func (r PlanRecord) Cost() int {
	return len(r.Actions)
}

// NewPlanRecord builds a record from a finished solve.
//
// Inputs:
//
//	p - The solved problem. Its fingerprint becomes the cache key.
//	res - The solve result.
//
// Outputs:
//
//	PlanRecord - Actions are rendered with p.FormatAction.
func NewPlanRecord(p *problem.Problem, res *search.Result) PlanRecord {
	rec := PlanRecord{
		Fingerprint:   p.Fingerprint(),
		Problem:       p.Name,
		RunID:         res.RunID,
		Found:         res.Found,
		Reason:        res.Reason,
		ExploredNodes: res.ExploredNodes,
		Elapsed:       res.Elapsed,
		CreatedAt:     time.Now().UTC(),
	}
	for _, a := range res.Plan {
		rec.Actions = append(rec.Actions, p.FormatAction(a))
	}
	return rec
}

// PlanStore caches plans by problem fingerprint.
//
// Thread Safety: Safe for concurrent use.
type PlanStore struct {
	db *DB
}

// NewPlanStore wraps an open database.
func NewPlanStore(db *DB) *PlanStore {
	return &PlanStore{db: db}
}

func planKey(fingerprint uint64) []byte {
	return append(append([]byte{}, planPrefix...), []byte(fmt.Sprintf("%016x", fingerprint))...)
}

// Put stores rec, replacing any record with the same fingerprint.
func (s *PlanStore) Put(ctx context.Context, rec PlanRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal plan record: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(planKey(rec.Fingerprint), data)
	})
}

// Get returns the record cached for fingerprint.
//
// Outputs:
//
//	*PlanRecord - The cached record.
//	error - ErrPlanNotFound if nothing is cached.
func (s *PlanStore) Get(ctx context.Context, fingerprint uint64) (*PlanRecord, error) {
	var rec PlanRecord
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(planKey(fingerprint))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %016x", ErrPlanNotFound, fingerprint)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every cached record in fingerprint order.
func (s *PlanStore) List(ctx context.Context) ([]PlanRecord, error) {
	out := []PlanRecord{}
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = planPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(planPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec PlanRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record for fingerprint. Missing records are not an
// error.
func (s *PlanStore) Delete(ctx context.Context, fingerprint uint64) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(planKey(fingerprint))
	})
}

// ParseFingerprint parses the hex form printed by the CLI.
func ParseFingerprint(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	fp, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse fingerprint %q: %w", s, err)
	}
	return fp, nil
}
