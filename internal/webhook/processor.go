package webhook

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/transform"
)

// Module provides the webhook processor.
var Module = fx.Module("webhook",
	fx.Provide(NewProcessor),
)

// Processor routes a verified inbound webhook event to its handler.
type Processor struct {
	log         *zap.Logger
	transformer *transform.Transformer
}

type ProcessorParams struct {
	fx.In

	Log         *zap.Logger
	Transformer *transform.Transformer
}

func NewProcessor(p ProcessorParams) *Processor {
	return &Processor{
		log:         p.Log.Named("webhook.processor"),
		transformer: p.Transformer,
	}
}

// Process applies the inbound transformation and dispatches by event name.
// Unrecognized events are accepted and acknowledged generically.
func (p *Processor) Process(ctx context.Context, integration *domain.Integration, event string, payload map[string]any) (map[string]any, error) {
	payload = p.transformer.Apply(integration, payload, domain.DirectionInbound)

	switch event {
	case "data_update":
		return p.handleDataUpdate(integration, payload)
	case "sync_request":
		return p.handleSyncRequest(integration, payload)
	case "status_change":
		return p.handleStatusChange(integration, payload)
	default:
		p.log.Info("webhook event handled generically",
			zap.Int64("integration_id", integration.ID),
			zap.String("event", event),
		)
		return map[string]any{
			"event":      event,
			"handled":    true,
			"receivedAt": time.Now().UTC().Format(time.RFC3339),
		}, nil
	}
}

func (p *Processor) handleDataUpdate(integration *domain.Integration, payload map[string]any) (map[string]any, error) {
	records := 1
	if items, ok := payload["records"].([]any); ok {
		records = len(items)
	}
	p.log.Info("webhook data update received",
		zap.Int64("integration_id", integration.ID),
		zap.Int("records", records),
	)
	return map[string]any{"event": "data_update", "recordsAccepted": records}, nil
}

func (p *Processor) handleSyncRequest(integration *domain.Integration, payload map[string]any) (map[string]any, error) {
	dataType, _ := payload["dataType"].(string)
	p.log.Info("webhook sync request received",
		zap.Int64("integration_id", integration.ID),
		zap.String("data_type", dataType),
	)
	return map[string]any{"event": "sync_request", "queued": true, "dataType": dataType}, nil
}

func (p *Processor) handleStatusChange(integration *domain.Integration, payload map[string]any) (map[string]any, error) {
	status, _ := payload["status"].(string)
	p.log.Info("webhook status change received",
		zap.Int64("integration_id", integration.ID),
		zap.String("remote_status", status),
	)
	return map[string]any{"event": "status_change", "acknowledged": true}, nil
}
