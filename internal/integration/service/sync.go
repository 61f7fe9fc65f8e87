package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

func (s *Service) SyncData(ctx context.Context, req domain.SyncRequest) (*domain.SyncSummary, error) {
	unlock := s.locks.Lock(req.ID)
	defer unlock()

	integration, err := s.load(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if !integration.IsHealthy() {
		return nil, domain.ErrNotHealthy
	}

	dataTypes := []string(integration.DataTypes)
	if req.DataType != "" {
		dataTypes = []string{req.DataType}
	}
	if len(dataTypes) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	direction := integration.SyncDirection
	if req.Direction != "" {
		direction = req.Direction
	}

	requestID := uuid.NewString()
	results := make([]domain.SyncResult, 0, len(dataTypes))
	passed, failed := 0, 0

	for _, dataType := range dataTypes {
		started := time.Now()
		result := s.orchestrator.SyncOne(ctx, integration, dataType, direction)
		elapsed := time.Since(started)

		// Every attempt counts against usage, success and failure alike.
		integration.RecordUsage(result.Success, elapsed, s.clock.Now())

		if result.Success {
			passed++
		} else {
			failed++
		}
		results = append(results, result)
	}

	now := s.clock.Now()
	next := now.Add(time.Duration(integration.SyncIntervalSeconds) * time.Second)
	integration.LastSync = &now
	integration.NextSync = &next

	level := domain.LogInfo
	if failed > 0 {
		level = domain.LogWarning
	}
	integration.AppendLog(domain.LogEntry{
		Timestamp: now,
		Level:     level,
		Message:   fmt.Sprintf("sync finished: %d passed, %d failed", passed, failed),
		Data: map[string]any{
			"direction": string(direction),
			"dataTypes": dataTypes,
		},
		RequestID: requestID,
	})

	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}

	s.log.Info("sync batch finished",
		zap.Int64("integration_id", integration.ID),
		zap.Int("passed", passed),
		zap.Int("failed", failed),
	)

	return &domain.SyncSummary{
		Success:  failed == 0,
		Results:  results,
		SyncedAt: now,
		NextSync: next,
	}, nil
}
