// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/terascout/internal/models"
)

// ScoutStore is the single-writer view onto one scout's state. All methods
// are serialized in arrival order behind a per-scout mutex; writes are
// durable before the method returns.
type ScoutStore struct {
	store   *Store
	scoutID string
	mu      *sync.Mutex
}

// ScoutID returns the scout this view is bound to.
func (s *ScoutStore) ScoutID() string {
	return s.scoutID
}

func (s *ScoutStore) key(parts ...string) []byte {
	key := scoutKeyPrefix + s.scoutID
	for _, p := range parts {
		key += p
	}
	return []byte(key)
}

// PutConfig installs (or overwrites) the scout record and its registry row.
// It is an upsert and never errors on conflict.
func (s *ScoutStore) PutConfig(scout *models.Scout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(scout)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return s.store.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.key(configSuffix), data); err != nil {
			return fmt.Errorf("set config: %w", err)
		}
		if err := txn.Set([]byte(registryKeyPrefix+s.scoutID), []byte("1")); err != nil {
			return fmt.Errorf("set registry: %w", err)
		}
		return nil
	})
}

// GetConfig returns the scout record, or ErrNotFound if no config is
// installed. Decoding tolerates rows persisted by older schema versions:
// absent enrichment fields come back as zero values.
func (s *ScoutStore) GetConfig() (*models.Scout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getConfigLocked()
}

func (s *ScoutStore) getConfigLocked() (*models.Scout, error) {
	var scout models.Scout
	err := s.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(configSuffix))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get config: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &scout)
		})
	})
	if err != nil {
		return nil, err
	}
	return &scout, nil
}

// GetSnapshot returns the latest snapshot for the source URL, or nil if the
// source has never been fetched.
func (s *ScoutStore) GetSnapshot(url string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap models.Snapshot
	found := false
	err := s.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(snapshotInfix, urlKey(url)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

// PutSnapshot overwrites the snapshot for the source URL, truncating text to
// the configured maximum and stamping CheckedAt with the current time.
func (s *ScoutStore) PutSnapshot(url, contentHash, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(text) > s.store.maxSnapshotText {
		text = text[:s.store.maxSnapshotText]
	}
	snap := models.Snapshot{
		URL:         url,
		ContentHash: contentHash,
		Text:        text,
		CheckedAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(snapshotInfix, urlKey(url)), data)
	})
}

// RecordEvent appends the event iff its EventID is new. The event ID is a
// content-derived idempotency key, so replays of the same transition collide
// silently as a no-op and inserted is false.
func (s *ScoutStore) RecordEvent(event *models.Event) (inserted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("marshal event: %w", err)
	}

	key := s.key(eventInfix, event.EventID)
	err = s.store.db.Update(func(txn *badger.Txn) error {
		_, getErr := txn.Get(key)
		if getErr == nil {
			return nil // already recorded
		}
		if !errors.Is(getErr, badger.ErrKeyNotFound) {
			return fmt.Errorf("check event: %w", getErr)
		}
		inserted = true
		return txn.Set(key, data)
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// MarkEventNotified sets the notified flag on a recorded event. It is a
// no-op for unknown event IDs.
func (s *ScoutStore) MarkEventNotified(eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(eventInfix, eventID)
	return s.store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		var event models.Event
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &event)
		}); err != nil {
			return err
		}
		event.Notified = true
		data, err := json.Marshal(&event)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		return txn.Set(key, data)
	})
}

// ListEvents returns every recorded event in descending DetectedAt order.
func (s *ScoutStore) ListEvents() ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []models.Event{}
	err := s.store.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         s.key(eventInfix),
			PrefetchValues: true,
			PrefetchSize:   100,
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var event models.Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				return err
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].DetectedAt.After(events[j].DetectedAt)
	})
	return events, nil
}

// GetEmailCount returns today's (UTC) email counter, defaulting to zero.
func (s *ScoutStore) GetEmailCount() (models.EmailCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := models.DateKey(time.Now())
	count := models.EmailCount{DateKey: dateKey}
	err := s.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(emailInfix, dateKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get email count: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &count)
		})
	})
	if err != nil {
		return models.EmailCount{}, err
	}
	return count, nil
}

// IncrementEmailCount atomically upserts today's counter row and deletes all
// other date rows, returning the new count. Only the current day's row is
// ever retained.
func (s *ScoutStore) IncrementEmailCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := models.DateKey(time.Now())
	todayKey := s.key(emailInfix, dateKey)
	var newCount int

	err := s.store.db.Update(func(txn *badger.Txn) error {
		count := models.EmailCount{DateKey: dateKey}
		item, err := txn.Get(todayKey)
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &count)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get email count: %w", err)
		}

		count.Count++
		newCount = count.Count
		data, err := json.Marshal(&count)
		if err != nil {
			return fmt.Errorf("marshal email count: %w", err)
		}
		if err := txn.Set(todayKey, data); err != nil {
			return fmt.Errorf("set email count: %w", err)
		}

		// Drop stale date rows so the table holds exactly one row.
		it := txn.NewIterator(badger.IteratorOptions{Prefix: s.key(emailInfix)})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) != string(todayKey) {
				stale = append(stale, key)
			}
		}
		it.Close()
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete stale counter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newCount, nil
}

// Wipe deletes every row belonging to the scout, including step checkpoints
// and the registry entry. After Wipe, GetConfig returns ErrNotFound.
func (s *ScoutStore) Wipe() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(scoutKeyPrefix + s.scoutID + ":")
	return s.store.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}
		if err := txn.Delete([]byte(registryKeyPrefix + s.scoutID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete registry: %w", err)
		}
		return nil
	})
}
