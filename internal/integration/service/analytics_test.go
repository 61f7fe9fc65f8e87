package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		period string
		days   int
	}{
		{"7d", 7},
		{"1d", 1},
		{"24h", 1},
		{"12h", 1},
		{"36h", 2},
		{"72h", 3},
		{"2w", 14},
		{"1m", 30},
		{"3m", 90},
		{"1y", 365},
		{"", 30},
		{"0d", 30},
		{"abc", 30},
		{"7days", 30},
		{"-7d", 30},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.days, parsePeriod(tc.period), "period %q", tc.period)
	}
}

func TestAnalytics_WindowsAndAverages(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()
	day := func(daysAgo int) time.Time {
		d := now.AddDate(0, 0, -daysAgo)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}

	seeded := healthyIntegration(1)
	seeded.MonthlyLimit = 100
	seeded.CurrentMonthUsage = 30
	seeded.DailyUsage = []domain.DailyUsage{
		{Date: day(0), Requests: 10, SuccessRate: 100, AvgResponseTimeMs: 100},
		{Date: day(3), Requests: 20, SuccessRate: 50, AvgResponseTimeMs: 200},
		{Date: day(20), Requests: 40, SuccessRate: 80, AvgResponseTimeMs: 300},
	}
	seeded.RecentLogs = []domain.LogEntry{
		{Timestamp: now.AddDate(0, 0, -1), Level: domain.LogError, Message: "recent failure"},
		{Timestamp: now.AddDate(0, 0, -2), Level: domain.LogInfo, Message: "recent info"},
		{Timestamp: now.AddDate(0, 0, -20), Level: domain.LogError, Message: "old failure"},
	}
	f.seed(t, seeded)

	resp, err := f.svc.Analytics(context.Background(), seeded.ID, testOwnerID, "7d")
	assert.NoError(t, err)

	assert.Equal(t, "7d", resp.Period)
	assert.Equal(t, 7, resp.PeriodDays)
	assert.Equal(t, int64(30), resp.TotalRequests)
	assert.Len(t, resp.DailyUsage, 2)
	assert.InDelta(t, 15.0, resp.AverageRequestsPerDay, 0.001)
	assert.InDelta(t, 75.0, resp.AverageSuccessRate, 0.001)
	assert.InDelta(t, 150.0, resp.AverageResponseTimeMs, 0.001)

	// Only error-level entries inside the window.
	assert.Len(t, resp.RecentErrors, 1)
	assert.Equal(t, "recent failure", resp.RecentErrors[0].Message)

	assert.Equal(t, int64(70), resp.QuotaRemaining)
	assert.InDelta(t, 30.0, resp.MonthlyUsagePct, 0.001)
}

func TestAnalytics_DefaultPeriodAndOwnerGate(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, healthyIntegration(1))

	resp, err := f.svc.Analytics(context.Background(), seeded.ID, testOwnerID, "")
	assert.NoError(t, err)
	assert.Equal(t, 30, resp.PeriodDays)
	assert.Equal(t, int64(0), resp.TotalRequests)

	_, err = f.svc.Analytics(context.Background(), seeded.ID, testOwnerID+1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalytics_QuotaRemainingNeverNegative(t *testing.T) {
	f := newFixture(t)
	seeded := healthyIntegration(1)
	seeded.MonthlyLimit = 100
	seeded.CurrentMonthUsage = 120
	f.seed(t, seeded)

	resp, err := f.svc.Analytics(context.Background(), seeded.ID, testOwnerID, "30d")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), resp.QuotaRemaining)
	assert.InDelta(t, 120.0, resp.MonthlyUsagePct, 0.001)
}
