package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripmesh/integrations/internal/config"
	"github.com/tripmesh/integrations/internal/integration/domain"
	obsmetrics "github.com/tripmesh/integrations/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("provider",
	fx.Provide(New),
)

var (
	ErrCircuitOpen    = errors.New("circuit_open")
	ErrProviderStatus = errors.New("provider_error_status")
)

type Request struct {
	Method   string
	Endpoint string
	Query    map[string]string
	Headers  map[string]string
	Body     any
}

type Response struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
	Latency    time.Duration
}

// Client performs outbound calls against an integration's provider with
// credential headers attached and the per-integration timeout enforced.
type Client interface {
	Do(ctx context.Context, integration *domain.Integration, req Request) (*Response, error)
}

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

type httpClient struct {
	http      *http.Client
	userAgent string
	log       *zap.Logger
	breakers  *BreakerRegistry
}

func New(p Params) Client {
	return &httpClient{
		http:      &http.Client{},
		userAgent: p.Cfg.UserAgent,
		log:       p.Log.Named("provider.client"),
		breakers:  NewBreakerRegistry(),
	}
}

func (c *httpClient) Do(ctx context.Context, integration *domain.Integration, req Request) (*Response, error) {
	if err := c.breakers.Allow(integration.ID, integration.ErrorHandling.CircuitBreaker); err != nil {
		return nil, err
	}

	target, err := resolveURL(integration.BaseURL, req.Endpoint, req.Query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	ctx, cancel := context.WithTimeout(ctx, integration.Timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if key := integration.Credentials.APIKey; key != "" {
		httpReq.Header.Set("X-API-Key", key)
	}
	if token := integration.Credentials.AccessToken; token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	latency := time.Since(start)
	obsmetrics.ObserveProviderLatency(latency)
	if err != nil {
		c.breakers.OnFailure(integration.ID, integration.ErrorHandling.CircuitBreaker)
		obsmetrics.IncProviderCall(false)
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		c.breakers.OnFailure(integration.ID, integration.ErrorHandling.CircuitBreaker)
		obsmetrics.IncProviderCall(false)
		return nil, err
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Raw:        raw,
		Latency:    latency,
	}
	var decoded map[string]any
	if json.Unmarshal(raw, &decoded) == nil {
		resp.Body = decoded
	}

	if httpResp.StatusCode >= http.StatusBadRequest {
		c.breakers.OnFailure(integration.ID, integration.ErrorHandling.CircuitBreaker)
		obsmetrics.IncProviderCall(false)
		return resp, fmt.Errorf("%w: %d", ErrProviderStatus, httpResp.StatusCode)
	}

	c.breakers.OnSuccess(integration.ID)
	obsmetrics.IncProviderCall(true)
	return resp, nil
}

func resolveURL(baseURL, endpoint string, query map[string]string) (string, error) {
	raw := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if baseURL == "" {
			return "", fmt.Errorf("no base url for endpoint %q", endpoint)
		}
		raw = strings.TrimSuffix(baseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		values := parsed.Query()
		for k, v := range query {
			values.Set(k, v)
		}
		parsed.RawQuery = values.Encode()
	}
	return parsed.String(), nil
}
