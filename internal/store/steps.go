// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// stepRecord is the persisted outcome of one engine step. Outcome is the
// step's JSON-encoded return value; once recorded, restarts return it
// without re-executing the step's side effects.
type stepRecord struct {
	Outcome     json.RawMessage `json:"outcome"`
	CompletedAt time.Time       `json:"completedAt"`
}

// GetStep returns the recorded outcome of a named step, if any. Step names
// include the cycle index, so distinct cycles produce distinct rows.
func (s *ScoutStore) GetStep(name string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec stepRecord
	found := false
	err := s.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(stepInfix, name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get step %s: %w", name, err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	return rec.Outcome, true, nil
}

// PutStep durably records the outcome of a named step.
func (s *ScoutStore) PutStep(name string, outcome json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := stepRecord{Outcome: outcome, CompletedAt: time.Now().UTC()}
	data, err := json.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshal step %s: %w", name, err)
	}
	return s.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(stepInfix, name), data)
	})
}
