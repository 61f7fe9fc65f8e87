package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

func newTestGovernor(t *testing.T) *Governor {
	t.Helper()
	return NewGovernor(GovernorParams{Log: zap.NewNop()})
}

func TestCheck_QuotaExhausted(t *testing.T) {
	gov := newTestGovernor(t)
	item := &domain.Integration{
		ID: 1, Status: domain.StatusActive,
		MonthlyLimit: 10, CurrentMonthUsage: 10,
	}

	assert.ErrorIs(t, gov.Check(context.Background(), item), domain.ErrQuotaExceeded)
}

func TestCheck_RateLimitedBelowCeilingPasses(t *testing.T) {
	gov := newTestGovernor(t)
	item := &domain.Integration{
		ID: 1, Status: domain.StatusRateLimited,
		MonthlyLimit: 100, CurrentMonthUsage: 95,
	}

	assert.NoError(t, gov.Check(context.Background(), item))
	assert.Equal(t, domain.StatusRateLimited, item.Status)
}

func TestCheck_BelowThresholdPasses(t *testing.T) {
	gov := newTestGovernor(t)
	item := &domain.Integration{
		ID: 1, Status: domain.StatusActive,
		MonthlyLimit: 100, CurrentMonthUsage: 50,
	}

	assert.NoError(t, gov.Check(context.Background(), item))
	assert.Equal(t, domain.StatusActive, item.Status)
}

func TestCheck_ZeroLimitIsUnmetered(t *testing.T) {
	gov := newTestGovernor(t)
	item := &domain.Integration{
		ID: 1, Status: domain.StatusActive,
		MonthlyLimit: 0, CurrentMonthUsage: 1_000_000,
	}

	assert.NoError(t, gov.Check(context.Background(), item))
}
