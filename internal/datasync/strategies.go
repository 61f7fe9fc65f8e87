package datasync

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/provider"
	"github.com/tripmesh/integrations/internal/transform"
)

type baseStrategy struct {
	client      provider.Client
	transformer *transform.Transformer
	log         *zap.Logger
}

// pull fetches records from the provider's getData endpoint and applies
// the inbound transformation to each record.
func (b baseStrategy) pull(ctx context.Context, integration *domain.Integration, dataType string) (int, error) {
	endpoint := integration.Endpoints.GetData
	if endpoint == "" {
		return 0, fmt.Errorf("no getData endpoint configured for %s", dataType)
	}

	resp, err := b.client.Do(ctx, integration, provider.Request{
		Method:   http.MethodGet,
		Endpoint: endpoint,
		Query:    map[string]string{"type": dataType},
	})
	if err != nil {
		return 0, err
	}

	records := extractRecords(resp.Body)
	for idx, record := range records {
		records[idx] = b.transformer.Apply(integration, record, domain.DirectionInbound)
	}
	return len(records), nil
}

// push sends locally staged records to the provider's postData endpoint,
// applying the outbound transformation first.
func (b baseStrategy) push(ctx context.Context, integration *domain.Integration, dataType string, records []map[string]any) (int, error) {
	endpoint := integration.Endpoints.PostData
	if endpoint == "" {
		return 0, fmt.Errorf("no postData endpoint configured for %s", dataType)
	}

	outbound := make([]map[string]any, 0, len(records))
	for _, record := range records {
		outbound = append(outbound, b.transformer.Apply(integration, record, domain.DirectionOutbound))
	}

	_, err := b.client.Do(ctx, integration, provider.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		Body:     map[string]any{"type": dataType, "records": outbound},
	})
	if err != nil {
		return 0, err
	}
	return len(outbound), nil
}

func (b baseStrategy) run(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction, staged []map[string]any) (int, error) {
	total := 0

	if direction == domain.DirectionInbound || direction == domain.DirectionBidirectional {
		n, err := b.pull(ctx, integration, dataType)
		if err != nil {
			return total, err
		}
		total += n
	}

	if direction == domain.DirectionOutbound || direction == domain.DirectionBidirectional {
		n, err := b.push(ctx, integration, dataType, staged)
		if err != nil {
			return total, err
		}
		total += n
	}

	return total, nil
}

func extractRecords(body map[string]any) []map[string]any {
	if body == nil {
		return nil
	}
	items, ok := body["records"].([]any)
	if !ok {
		if data, ok := body["data"].([]any); ok {
			items = data
		}
	}
	var records []map[string]any
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, record)
		}
	}
	return records
}

type userStrategy struct{ baseStrategy }

func (s *userStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	return s.run(ctx, integration, "users", direction, nil)
}

type blogStrategy struct{ baseStrategy }

func (s *blogStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	return s.run(ctx, integration, "blogs", direction, nil)
}

type bookingStrategy struct{ baseStrategy }

func (s *bookingStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	return s.run(ctx, integration, "bookings", direction, nil)
}

type reviewStrategy struct{ baseStrategy }

func (s *reviewStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	return s.run(ctx, integration, "reviews", direction, nil)
}

// analyticsStrategy only ever pulls: aggregated metrics are not pushed
// back to the provider regardless of the configured direction.
type analyticsStrategy struct{ baseStrategy }

func (s *analyticsStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	if direction == domain.DirectionOutbound {
		return 0, nil
	}
	return s.pull(ctx, integration, "analytics")
}

type genericStrategy struct{ baseStrategy }

func (s *genericStrategy) Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error) {
	return s.run(ctx, integration, dataType, direction, nil)
}
