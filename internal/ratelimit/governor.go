package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
)

type GovernorParams struct {
	fx.In

	Log    *zap.Logger
	Bucket *TokenBucket `optional:"true"`
}

// Governor enforces an integration's monthly quota and, when Redis is
// configured, its requests-per-minute policy.
type Governor struct {
	log    *zap.Logger
	bucket *TokenBucket
}

func NewGovernor(p GovernorParams) *Governor {
	return &Governor{
		log:    p.Log.Named("ratelimit.governor"),
		bucket: p.Bucket,
	}
}

// Check fails with ErrQuotaExceeded when the monthly quota is exhausted or
// the per-minute bucket is empty. A rate_limited status alone does not block
// the call: the soft threshold is advisory until the ceiling is reached.
func (g *Governor) Check(ctx context.Context, integration *domain.Integration) error {
	if integration.MonthlyLimit > 0 && integration.CurrentMonthUsage >= integration.MonthlyLimit {
		return domain.ErrQuotaExceeded
	}

	if g.bucket != nil && integration.RateLimit.RequestsPerMinute > 0 {
		rpm := integration.RateLimit.RequestsPerMinute
		key := fmt.Sprintf("integration:rpm:%d", integration.ID)
		res, err := g.bucket.Allow(ctx, key, float64(rpm)/60, rpm)
		if err != nil {
			// Redis being down must not block provider traffic.
			g.log.Warn("minute rate limiter unavailable", zap.Error(err))
			return nil
		}
		if !res.Allowed {
			return domain.ErrQuotaExceeded
		}
	}

	return nil
}
