package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/provider"
)

func TestSyncData_PerTypeFailureIsolation(t *testing.T) {
	f := newFixture(t)
	seeded := healthyIntegration(1)
	seeded.DataTypes = datatypes.JSONSlice[string]{"users", "bookings", "reviews"}
	f.seed(t, seeded)

	// bookings fails on pull; the other data types must still run.
	f.client.respond = func(req provider.Request) (*provider.Response, error) {
		if req.Query["type"] == "bookings" {
			return nil, errors.New("bookings endpoint unavailable")
		}
		return &provider.Response{
			StatusCode: 200,
			Body: map[string]any{"records": []any{
				map[string]any{"id": 1},
				map[string]any{"id": 2},
			}},
			Latency: 15 * time.Millisecond,
		}, nil
	}

	summary, err := f.svc.SyncData(context.Background(), domain.SyncRequest{ID: seeded.ID})
	assert.NoError(t, err)
	assert.False(t, summary.Success)
	assert.Len(t, summary.Results, 3)

	byType := map[string]domain.SyncResult{}
	for _, result := range summary.Results {
		byType[result.DataType] = result
	}
	assert.True(t, byType["users"].Success)
	assert.Equal(t, 2, byType["users"].RecordsProcessed)
	assert.False(t, byType["bookings"].Success)
	assert.Contains(t, byType["bookings"].Errors[0], "bookings endpoint unavailable")
	assert.True(t, byType["reviews"].Success)

	// Every attempt counts, failures included.
	stored := f.reload(t, seeded.ID)
	assert.Equal(t, int64(3), stored.TotalRequests)
	assert.Equal(t, int64(2), stored.SuccessfulRequests)
	assert.Equal(t, int64(1), stored.FailedRequests)
	assert.Equal(t, int64(3), stored.CurrentMonthUsage)
	assert.Equal(t, domain.LogWarning, stored.RecentLogs[0].Level)
}

func TestSyncData_SchedulesNextSync(t *testing.T) {
	f := newFixture(t)
	seeded := healthyIntegration(1)
	seeded.DataTypes = datatypes.JSONSlice[string]{"users"}
	seeded.SyncIntervalSeconds = 900
	f.seed(t, seeded)

	summary, err := f.svc.SyncData(context.Background(), domain.SyncRequest{ID: seeded.ID})
	assert.NoError(t, err)
	assert.True(t, summary.Success)

	now := f.clock.Now()
	assert.Equal(t, now, summary.SyncedAt)
	assert.Equal(t, now.Add(15*time.Minute), summary.NextSync)

	stored := f.reload(t, seeded.ID)
	assert.NotNil(t, stored.LastSync)
	assert.NotNil(t, stored.NextSync)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), stored.NextSync.Unix())
}

func TestSyncData_RequestOverridesTypeAndDirection(t *testing.T) {
	f := newFixture(t)
	seeded := healthyIntegration(1)
	seeded.DataTypes = datatypes.JSONSlice[string]{"users", "bookings"}
	f.seed(t, seeded)

	summary, err := f.svc.SyncData(context.Background(), domain.SyncRequest{
		ID:        seeded.ID,
		DataType:  "reviews",
		Direction: domain.DirectionInbound,
	})
	assert.NoError(t, err)
	assert.Len(t, summary.Results, 1)
	assert.Equal(t, "reviews", summary.Results[0].DataType)

	// Inbound only: no pushes to the postData endpoint.
	for _, req := range f.client.requests() {
		assert.Equal(t, http.MethodGet, req.Method)
	}
}

func TestSyncData_Gates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SyncData(ctx, domain.SyncRequest{ID: 999})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	unhealthy := healthyIntegration(1)
	unhealthy.Health.IsHealthy = false
	f.seed(t, unhealthy)
	_, err = f.svc.SyncData(ctx, domain.SyncRequest{ID: unhealthy.ID})
	assert.ErrorIs(t, err, domain.ErrNotHealthy)

	// Healthy but nothing configured to sync.
	bare := healthyIntegration(2)
	f.seed(t, bare)
	_, err = f.svc.SyncData(ctx, domain.SyncRequest{ID: bare.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
