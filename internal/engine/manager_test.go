// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/terascout/internal/fetch"
	"github.com/tomtom215/terascout/internal/store"
)

// blockingFetcher parks every Fetch until its context is canceled, keeping
// engines alive for the duration of a test.
type blockingFetcher struct{}

func (b *blockingFetcher) Fetch(ctx context.Context, _ string) (fetch.Result, error) {
	<-ctx.Done()
	return fetch.Result{}, ctx.Err()
}

func newTestManager(t *testing.T, ctx context.Context) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(store.Options{})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return NewManager(ctx, st, testCfg(), &blockingFetcher{}, &fakeAnalyzer{}, &fakeMailer{}), st
}

func TestManagerSpawnAndTerminate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, st := newTestManager(t, ctx)
	installScout(t, st, "scout-a", time.Now().UTC().Add(time.Hour))

	m.Spawn("scout-a")
	m.Spawn("scout-a") // second spawn is a no-op

	m.mu.Lock()
	running := len(m.engines)
	m.mu.Unlock()
	if running != 1 {
		t.Errorf("running engines: got %d, want 1", running)
	}

	// Terminate blocks until the engine goroutine has exited.
	m.Terminate("scout-a")
	m.mu.Lock()
	running = len(m.engines)
	m.mu.Unlock()
	if running != 0 {
		t.Errorf("running engines after terminate: got %d, want 0", running)
	}

	// Terminating an unknown scout is a no-op.
	m.Terminate("scout-b")
}

func TestManagerResumeAll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, st := newTestManager(t, ctx)

	for _, id := range []string{"scout-a", "scout-b"} {
		installScout(t, st, id, time.Now().UTC().Add(time.Hour))
	}

	if err := m.ResumeAll(); err != nil {
		t.Fatalf("ResumeAll: %v", err)
	}
	m.mu.Lock()
	running := len(m.engines)
	m.mu.Unlock()
	if running != 2 {
		t.Errorf("running engines: got %d, want 2", running)
	}

	m.Stop()
}

func TestManagerStopPreventsSpawns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, st := newTestManager(t, ctx)
	installScout(t, st, "scout-a", time.Now().UTC().Add(time.Hour))

	m.Stop()
	m.Spawn("scout-a")

	m.mu.Lock()
	running := len(m.engines)
	m.mu.Unlock()
	if running != 0 {
		t.Errorf("spawn after stop started an engine")
	}
}
