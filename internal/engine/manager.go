// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package engine

import (
	"context"
	"sync"

	"github.com/tomtom215/terascout/internal/config"
	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/metrics"
	"github.com/tomtom215/terascout/internal/store"
)

type engineHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the set of running engines. Spawn and Terminate are safe for
// concurrent use from API handlers; Stop waits for every engine to unwind.
type Manager struct {
	store    *store.Store
	cfg      config.ScoutConfig
	fetcher  Fetcher
	analyzer Analyzer
	mailer   Mailer

	mu      sync.Mutex
	engines map[string]*engineHandle
	baseCtx context.Context
	wg      sync.WaitGroup
	stopped bool
}

// NewManager creates a manager; engines spawned through it inherit ctx, so
// canceling ctx (or calling Stop) winds down every scout.
func NewManager(ctx context.Context, st *store.Store, cfg config.ScoutConfig, fetcher Fetcher, analyzer Analyzer, mailer Mailer) *Manager {
	return &Manager{
		store:    st,
		cfg:      cfg,
		fetcher:  fetcher,
		analyzer: analyzer,
		mailer:   mailer,
		engines:  make(map[string]*engineHandle),
		baseCtx:  ctx,
	}
}

// Spawn starts an engine for the scout. Spawning an already-running scout is
// a no-op, which makes boot-time resume and API creation race-free.
func (m *Manager) Spawn(scoutID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	if _, running := m.engines[scoutID]; running {
		return
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	handle := &engineHandle{cancel: cancel, done: make(chan struct{})}
	m.engines[scoutID] = handle
	metrics.ScoutsActive.Inc()

	eng := New(m.store.For(scoutID), m.cfg, m.fetcher, m.analyzer, m.mailer)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer metrics.ScoutsActive.Dec()
		defer close(handle.done)
		defer func() {
			m.mu.Lock()
			delete(m.engines, scoutID)
			m.mu.Unlock()
		}()

		if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
			logger := logging.Logger()
			logger.Error().Err(err).Str("scout_id", scoutID).Msg("Engine exited with error")
		}
	}()
}

// Terminate cancels the scout's engine and blocks until it has stopped, so a
// caller may safely wipe the scout's state afterwards. Terminating a scout
// with no running engine is a no-op.
func (m *Manager) Terminate(scoutID string) {
	m.mu.Lock()
	handle, running := m.engines[scoutID]
	m.mu.Unlock()
	if !running {
		return
	}
	handle.cancel()
	<-handle.done
}

// ResumeAll spawns an engine for every scout present in the registry. Called
// once at boot; engines replay their step checkpoints and pick up exactly
// where the previous process stopped.
func (m *Manager) ResumeAll() error {
	ids, err := m.store.ListScoutIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		m.Spawn(id)
	}
	logger := logging.Logger()
	logger.Info().Int("count", len(ids)).Msg("Resumed scouts from registry")
	return nil
}

// Stop prevents new spawns and waits for all running engines to exit. The
// manager's base context must be canceled by the caller first (or engines
// will run to natural completion).
func (m *Manager) Stop() {
	m.mu.Lock()
	m.stopped = true
	for _, handle := range m.engines {
		handle.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
