package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/webhook"
)

// HandleWebhook is deliberately not owner-gated: any caller holding the
// integration id may deliver, authenticity rests on the signature.
func (s *Service) HandleWebhook(ctx context.Context, id int64, event string, payload map[string]any, headers map[string]string) (*domain.WebhookResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	subscription := integration.ActiveWebhook(event)
	if subscription == nil {
		return nil, domain.ErrWebhookNotFound
	}

	if subscription.Secret != "" {
		if !webhook.Verify(payload, headers, subscription.Secret) {
			s.log.Warn("webhook signature rejected",
				zap.Int64("integration_id", id),
				zap.String("event", event),
			)
			return nil, domain.ErrSignatureInvalid
		}
	}

	result, err := s.processor.Process(ctx, integration, event, payload)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	integration.AppendLog(domain.LogEntry{
		Timestamp: now,
		Level:     domain.LogInfo,
		Message:   "webhook processed: " + event,
		Data:      map[string]any{"event": event},
		RequestID: uuid.NewString(),
	})
	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}

	return &domain.WebhookResult{
		Event:     event,
		Processed: true,
		Result:    result,
	}, nil
}
