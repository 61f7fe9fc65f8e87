package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/provider"
)

func (s *Service) SendData(ctx context.Context, id int64, payload map[string]any, endpoint string) (map[string]any, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	// Quota exhaustion must surface as the quota error, so the governor
	// runs ahead of the health gate.
	if err := s.governor.Check(ctx, integration); err != nil {
		return nil, err
	}
	if !integration.IsHealthy() {
		return nil, domain.ErrNotHealthy
	}

	if endpoint == "" {
		endpoint = integration.Endpoints.PostData
	}

	outbound := s.transformer.Apply(integration, payload, domain.DirectionOutbound)

	resp, callErr := s.client.Do(ctx, integration, provider.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Body:     outbound,
	})
	return s.finishCall(ctx, integration, resp, callErr, "send", endpoint)
}

func (s *Service) ReceiveData(ctx context.Context, id int64, endpoint string, params map[string]string) (map[string]any, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.governor.Check(ctx, integration); err != nil {
		return nil, err
	}
	if !integration.IsHealthy() {
		return nil, domain.ErrNotHealthy
	}

	if endpoint == "" {
		endpoint = integration.Endpoints.GetData
	}

	resp, callErr := s.client.Do(ctx, integration, provider.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Query:    params,
	})
	body, err := s.finishCall(ctx, integration, resp, callErr, "receive", endpoint)
	if err != nil {
		return nil, err
	}
	return s.transformer.Apply(integration, body, domain.DirectionInbound), nil
}

// finishCall records usage on both outcomes, logs failures, persists the
// record, and re-raises provider errors to the caller.
func (s *Service) finishCall(ctx context.Context, integration *domain.Integration, resp *provider.Response, callErr error, op, endpoint string) (map[string]any, error) {
	latency := time.Duration(0)
	if resp != nil {
		latency = resp.Latency
	}
	now := s.clock.Now()
	integration.RecordUsage(callErr == nil, latency, now)

	if callErr != nil {
		integration.AppendLog(domain.LogEntry{
			Timestamp:      now,
			Level:          domain.LogError,
			Message:        op + " failed: " + callErr.Error(),
			Data:           map[string]any{"endpoint": endpoint},
			RequestID:      uuid.NewString(),
			ResponseTimeMs: latency.Milliseconds(),
		})
	}

	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}
	if callErr != nil {
		return nil, callErr
	}
	return resp.Body, nil
}
