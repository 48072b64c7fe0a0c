// Terascout - Event Intelligence Scouts
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/terascout

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/terascout/internal/engine"
)

// EngineService resumes persisted scouts at startup and winds the engine
// manager down on shutdown. Spawn on an already-running scout is a no-op, so
// a supervisor restart of this service is harmless.
type EngineService struct {
	manager *engine.Manager
}

// NewEngineService wraps the engine manager as a suture service.
func NewEngineService(manager *engine.Manager) *EngineService {
	return &EngineService{manager: manager}
}

// Serve implements suture.Service.
func (s *EngineService) Serve(ctx context.Context) error {
	if err := s.manager.ResumeAll(); err != nil {
		return fmt.Errorf("resume scouts: %w", err)
	}
	<-ctx.Done()
	s.manager.Stop()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *EngineService) String() string {
	return "engine-manager"
}
