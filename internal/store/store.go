// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

// Package store implements the durable per-scout state store on BadgerDB.
//
// A single Badger database holds the state of every scout, namespaced by key
// prefix. Each scout's state is accessed through a ScoutStore view obtained
// from For(scoutID); the view serializes all operations for that scout behind
// a per-scout mutex, enforcing the single-writer discipline: at any time the
// only writers for a scout are its bound engine and the control-plane
// create/delete paths, and their calls are serialized in arrival order.
//
// Logical tables and their key layout:
//
//	scout:<id>:config            scout record incl. sources  (single row)
//	scout:<id>:snapshot:<h(url)> latest snapshot per source
//	scout:<id>:event:<eventId>   append-only event log
//	scout:<id>:email:<dateKey>   daily email counter (only today retained)
//	scout:<id>:step:<name>       engine step checkpoints
//	registry:<id>                live-scout registry for startup resume
//
// All writes are synchronous and durable before the call returns (Badger is
// opened with SyncWrites). A scout is either fully populated or fully absent:
// PutConfig installs config and registry row in one transaction, Wipe removes
// every row of the scout in one pass.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/terascout/internal/logging"
)

// ErrNotFound is returned when a scout has no installed config.
var ErrNotFound = errors.New("scout not found")

// Key prefixes for BadgerDB storage.
const (
	scoutKeyPrefix    = "scout:"
	registryKeyPrefix = "registry:"

	configSuffix  = ":config"
	snapshotInfix = ":snapshot:"
	eventInfix    = ":event:"
	emailInfix    = ":email:"
	stepInfix     = ":step:"
)

// Options configures a Store.
type Options struct {
	// Path is the Badger directory. Empty selects an in-memory database
	// (tests only; nothing survives a restart).
	Path string

	// MaxSnapshotTextLength truncates snapshot text on write.
	MaxSnapshotTextLength int
}

// Store owns the Badger database and hands out per-scout views.
type Store struct {
	db              *badger.DB
	maxSnapshotText int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the store at opts.Path.
func Open(opts Options) (*Store, error) {
	var badgerOpts badger.Options
	if opts.Path == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// SyncWrites: step checkpoints and event rows must be durable
		// before the enclosing operation returns.
		badgerOpts = badger.DefaultOptions(opts.Path).WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}

	maxText := opts.MaxSnapshotTextLength
	if maxText <= 0 {
		maxText = 5000
	}

	logging.Info().Str("path", opts.Path).Int("max_snapshot_text", maxText).Msg("State store opened")

	return &Store{
		db:              db,
		maxSnapshotText: maxText,
		locks:           make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// For returns the single-writer view for the given scout. Repeated calls for
// the same scout share one mutex, so every caller is serialized.
func (s *Store) For(scoutID string) *ScoutStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[scoutID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[scoutID] = lock
	}
	return &ScoutStore{
		store:   s,
		scoutID: scoutID,
		mu:      lock,
	}
}

// ListScoutIDs enumerates every scout with a registry row. Used at startup to
// respawn engines for scouts that survived a restart.
func (s *Store) ListScoutIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(registryKeyPrefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			ids = append(ids, key[len(registryKeyPrefix):])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list scouts: %w", err)
	}
	return ids, nil
}

// urlKey collapses a source URL into a fixed-length key segment.
func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}
