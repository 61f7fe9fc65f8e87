package provider

import (
	"context"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/config"
	"github.com/tripmesh/integrations/internal/integration/domain"
)

func newTestClient(t *testing.T) *httpClient {
	t.Helper()
	client := New(Params{
		Cfg: config.Config{UserAgent: "tripmesh-integrations/test"},
		Log: zap.NewNop(),
	}).(*httpClient)
	gock.InterceptClient(client.http)
	return client
}

func testIntegration() *domain.Integration {
	return &domain.Integration{
		ID:      1,
		Type:    domain.TypeTravelAPI,
		BaseURL: "https://api.example.com/v1",
		Credentials: domain.Credentials{
			APIKey:      "key-123",
			AccessToken: "token-456",
		},
	}
}

func TestClient_AttachesCredentialHeaders(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.example.com").
		Get("/v1/ping").
		MatchHeader("X-API-Key", "key-123").
		MatchHeader("Authorization", "Bearer token-456").
		MatchHeader("User-Agent", "tripmesh-integrations/test").
		Reply(200).
		JSON(map[string]any{"ok": true})

	client := newTestClient(t)
	resp, err := client.Do(context.Background(), testIntegration(), Request{
		Method:   "GET",
		Endpoint: "/ping",
	})

	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, true, resp.Body["ok"])
	assert.True(t, gock.IsDone())
}

func TestClient_MergesQueryParams(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.example.com").
		Get("/v1/bookings").
		MatchParam("since", "2026-01-01").
		Reply(200).
		JSON(map[string]any{"items": []any{}})

	client := newTestClient(t)
	_, err := client.Do(context.Background(), testIntegration(), Request{
		Method:   "GET",
		Endpoint: "/bookings",
		Query:    map[string]string{"since": "2026-01-01"},
	})

	assert.NoError(t, err)
	assert.True(t, gock.IsDone())
}

func TestClient_ErrorStatusSurfacesResponse(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.example.com").
		Post("/v1/data").
		Reply(422).
		JSON(map[string]any{"error": "unprocessable"})

	client := newTestClient(t)
	resp, err := client.Do(context.Background(), testIntegration(), Request{
		Method:   "POST",
		Endpoint: "/data",
		Body:     map[string]any{"x": 1},
	})

	assert.ErrorIs(t, err, ErrProviderStatus)
	assert.NotNil(t, resp)
	assert.Equal(t, 422, resp.StatusCode)
	assert.Equal(t, "unprocessable", resp.Body["error"])
}

func TestClient_CircuitBreakerTripsAfterThreshold(t *testing.T) {
	defer gock.Off()
	gock.New("https://api.example.com").
		Get("/v1/ping").
		Times(2).
		Reply(500).
		JSON(map[string]any{"error": "boom"})

	client := newTestClient(t)
	integration := testIntegration()
	integration.ErrorHandling.CircuitBreaker = domain.CircuitBreaker{
		Enabled:          true,
		FailureThreshold: 2,
		ResetTimeoutMs:   60_000,
	}

	req := Request{Method: "GET", Endpoint: "/ping"}
	_, err := client.Do(context.Background(), integration, req)
	assert.ErrorIs(t, err, ErrProviderStatus)
	_, err = client.Do(context.Background(), integration, req)
	assert.ErrorIs(t, err, ErrProviderStatus)

	// Third call is rejected locally, no HTTP traffic.
	_, err = client.Do(context.Background(), integration, req)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, gock.IsDone())
}

func TestClient_SuccessResetsBreaker(t *testing.T) {
	registry := NewBreakerRegistry()
	cfg := domain.CircuitBreaker{Enabled: true, FailureThreshold: 2, ResetTimeoutMs: 60_000}

	registry.OnFailure(1, cfg)
	registry.OnSuccess(1)
	registry.OnFailure(1, cfg)
	assert.NoError(t, registry.Allow(1, cfg))

	registry.OnFailure(1, cfg)
	assert.ErrorIs(t, registry.Allow(1, cfg), ErrCircuitOpen)
}

func TestClient_BreakerDisabledNeverTrips(t *testing.T) {
	registry := NewBreakerRegistry()
	cfg := domain.CircuitBreaker{Enabled: false, FailureThreshold: 1}

	registry.OnFailure(1, cfg)
	registry.OnFailure(1, cfg)
	assert.NoError(t, registry.Allow(1, cfg))
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		endpoint string
		query    map[string]string
		want     string
		wantErr  bool
	}{
		{"joins base and path", "https://api.example.com/v1", "/ping", nil, "https://api.example.com/v1/ping", false},
		{"tolerates missing slash", "https://api.example.com/v1/", "ping", nil, "https://api.example.com/v1/ping", false},
		{"absolute endpoint wins", "https://api.example.com", "https://other.example.com/x", nil, "https://other.example.com/x", false},
		{"query appended", "https://api.example.com", "/x", map[string]string{"a": "1"}, "https://api.example.com/x?a=1", false},
		{"no base for relative endpoint", "", "/ping", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveURL(tt.baseURL, tt.endpoint, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
