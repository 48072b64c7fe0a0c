// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/terascout/internal/logging"
	"github.com/tomtom215/terascout/internal/store"
)

// runStep executes a named, idempotent step with durable memoization. The
// first successful execution records its outcome in the state store; on
// restart, a completed step returns its recorded outcome without re-running
// side effects. A failed step records nothing, so the enclosing cycle can be
// retried and the step re-executes.
//
// Step names include the cycle index, so distinct cycles produce distinct
// checkpoint rows.
func runStep[T any](ctx context.Context, st *store.ScoutStore, name string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, found, err := st.GetStep(name)
	if err != nil {
		return zero, fmt.Errorf("step %s: load checkpoint: %w", name, err)
	}
	if found {
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return zero, fmt.Errorf("step %s: decode checkpoint: %w", name, err)
		}
		logger := logging.Ctx(ctx)
		logger.Trace().Str("step", name).Msg("Step replayed from checkpoint")
		return out, nil
	}

	out, err := fn(ctx)
	if err != nil {
		return zero, fmt.Errorf("step %s: %w", name, err)
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return zero, fmt.Errorf("step %s: encode outcome: %w", name, err)
	}
	if err := st.PutStep(name, encoded); err != nil {
		return zero, fmt.Errorf("step %s: save checkpoint: %w", name, err)
	}
	return out, nil
}

// sleepStep is a durable sleep. Its checkpoint stores the absolute wake
// deadline, recorded before the wait begins; a crash mid-sleep resumes the
// sleep for the remaining duration, not from zero. A deadline already in the
// past returns immediately.
func sleepStep(ctx context.Context, st *store.ScoutStore, name string, d time.Duration, now func() time.Time) error {
	deadline, err := runStep(ctx, st, name, func(context.Context) (time.Time, error) {
		return now().Add(d), nil
	})
	if err != nil {
		return err
	}

	remaining := deadline.Sub(now())
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
