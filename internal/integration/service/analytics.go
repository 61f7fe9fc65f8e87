package service

import (
	"context"
	"regexp"
	"strconv"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

const (
	defaultPeriodDays = 30
	maxRecentErrors   = 10
)

var periodPattern = regexp.MustCompile(`^(\d+)([hdwmy])$`)

// parsePeriod converts a period expression like "7d", "24h", "2w", "1m"
// or "1y" into a day count. Hours round up to whole days; unparseable
// input defaults to 30 days.
func parsePeriod(period string) int {
	match := periodPattern.FindStringSubmatch(period)
	if match == nil {
		return defaultPeriodDays
	}
	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return defaultPeriodDays
	}
	switch match[2] {
	case "h":
		return (n + 23) / 24
	case "d":
		return n
	case "w":
		return n * 7
	case "m":
		return n * 30
	case "y":
		return n * 365
	default:
		return defaultPeriodDays
	}
}

func (s *Service) Analytics(ctx context.Context, id int64, ownerID int64, period string) (*domain.AnalyticsResponse, error) {
	integration, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	days := parsePeriod(period)
	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -days)

	var (
		included      []domain.DailyUsage
		totalRequests int64
		sumSuccess    float64
		sumLatency    float64
	)
	for _, bucket := range integration.DailyUsage {
		if bucket.Date.Before(cutoff) {
			continue
		}
		included = append(included, bucket)
		totalRequests += bucket.Requests
		sumSuccess += bucket.SuccessRate
		sumLatency += bucket.AvgResponseTimeMs
	}

	var avgPerDay, avgSuccess, avgLatency float64
	if n := float64(len(included)); n > 0 {
		avgPerDay = float64(totalRequests) / n
		avgSuccess = sumSuccess / n
		avgLatency = sumLatency / n
	}

	var recentErrors []domain.LogEntry
	for _, entry := range integration.RecentLogs {
		if entry.Level != domain.LogError || entry.Timestamp.Before(cutoff) {
			continue
		}
		recentErrors = append(recentErrors, entry)
		if len(recentErrors) == maxRecentErrors {
			break
		}
	}

	remaining := integration.MonthlyLimit - integration.CurrentMonthUsage
	if remaining < 0 {
		remaining = 0
	}

	return &domain.AnalyticsResponse{
		IntegrationID:         integration.ID,
		Period:                period,
		PeriodDays:            days,
		TotalRequests:         totalRequests,
		AverageRequestsPerDay: avgPerDay,
		AverageSuccessRate:    avgSuccess,
		AverageResponseTimeMs: avgLatency,
		DailyUsage:            included,
		RecentErrors:          recentErrors,
		Health:                integration.Health,
		QuotaRemaining:        remaining,
		MonthlyUsagePct:       integration.MonthlyUsagePct(),
		LastSync:              integration.LastSync,
		NextSync:              integration.NextSync,
	}, nil
}
