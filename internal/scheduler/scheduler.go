package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tripmesh/integrations/internal/clock"
	"github.com/tripmesh/integrations/internal/integration/domain"
	obsmetrics "github.com/tripmesh/integrations/internal/observability/metrics"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

const monthlyPeriodLayout = "2006-01"

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Repo   domain.Repository
	Svc    domain.Service
	Clock  clock.Clock
	Config Config `optional:"true"`
}

// Scheduler drives the recurring maintenance loops: connection health
// probes, auto-sync sweeps and monthly usage resets.
type Scheduler struct {
	db    *gorm.DB
	log   *zap.Logger
	cfg   Config
	repo  domain.Repository
	svc   domain.Service
	clock clock.Clock
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Repo == nil || p.Svc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:    p.DB,
		log:   p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:   p.Config.withDefaults(),
		repo:  p.Repo,
		svc:   p.Svc,
		clock: p.Clock,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	obsmetrics.IncJobRun(name)
	err := fn(ctx)
	obsmetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	obsmetrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every job a single time. Loops call this; tests call it
// directly with a fake clock.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return errors.Join(
		s.runJob(ctx, "health_check", 2*time.Minute, s.HealthCheckJob),
		s.runJob(ctx, "sync_sweep", 5*time.Minute, s.SyncSweepJob),
		s.runJob(ctx, "usage_reset", time.Minute, s.UsageResetJob),
	)
}

// RunForever runs each job on its own ticker until the context is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		run      func(context.Context) error
	}{
		{"health_check", s.cfg.HealthCheckInterval, 2 * time.Minute, s.HealthCheckJob},
		{"sync_sweep", s.cfg.SyncSweepInterval, 5 * time.Minute, s.SyncSweepJob},
		{"usage_reset", s.cfg.UsageResetInterval, time.Minute, s.UsageResetJob},
	}

	for _, loop := range loops {
		wg.Add(1)
		go func(name string, interval, timeout time.Duration, run func(context.Context) error) {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := s.runJob(ctx, name, timeout, run); err != nil {
					s.log.Warn("scheduler job failed", zap.String("job", name), zap.Error(err))
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}(loop.name, loop.interval, loop.timeout, loop.run)
	}
	wg.Wait()
}

// HealthCheckJob probes one batch of enabled integrations. Probe outcomes
// are recorded on the record; only explicit reconfiguration moves status.
func (s *Scheduler) HealthCheckJob(ctx context.Context) error {
	items, err := s.repo.FindForHealthCheck(ctx, s.db, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var jobErr error
	s.forEach(ctx, items, func(ctx context.Context, item domain.Integration) error {
		_, err := s.svc.TestConnection(ctx, item.ID)
		if err != nil {
			s.log.Warn("health probe failed",
				zap.Int64("integration_id", item.ID),
				zap.String("type", string(item.Type)),
				zap.Error(err),
			)
		}
		return err
	}, &jobErr)
	return jobErr
}

// SyncSweepJob syncs one batch of auto-sync integrations whose next_sync
// has elapsed.
func (s *Scheduler) SyncSweepJob(ctx context.Context) error {
	now := s.clock.Now()
	items, err := s.repo.FindDueForSync(ctx, s.db, now, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	var jobErr error
	s.forEach(ctx, items, func(ctx context.Context, item domain.Integration) error {
		summary, err := s.svc.SyncData(ctx, domain.SyncRequest{ID: item.ID})
		if err != nil {
			if errors.Is(err, domain.ErrNotHealthy) || errors.Is(err, domain.ErrInvalidRequest) {
				s.log.Debug("sync skipped",
					zap.Int64("integration_id", item.ID),
					zap.Error(err),
				)
				return nil
			}
			s.log.Warn("sync failed",
				zap.Int64("integration_id", item.ID),
				zap.Error(err),
			)
			return err
		}
		if !summary.Success {
			s.log.Warn("sync completed with failures",
				zap.Int64("integration_id", item.ID),
				zap.Int("results", len(summary.Results)),
			)
		}
		return nil
	}, &jobErr)
	return jobErr
}

// UsageResetJob zeroes monthly quota counters for integrations whose reset
// marker lags the current calendar month. Drains until the batch comes back
// empty; the marker makes re-runs idempotent. Each reset is a single UPDATE
// so it never races the service's whole-record saves.
func (s *Scheduler) UsageResetJob(ctx context.Context) error {
	now := s.clock.Now().UTC()
	period := now.Format(monthlyPeriodLayout)
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		items, err := s.repo.FindNeedingUsageReset(ctx, s.db, period, s.cfg.BatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}
		if len(items) == 0 {
			return jobErr
		}

		processed := 0
		for idx := range items {
			reset, err := s.repo.ResetUsage(ctx, s.db, items[idx].ID, period, now)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				continue
			}
			if !reset {
				continue
			}
			processed++
			s.log.Info("monthly usage reset",
				zap.Int64("integration_id", items[idx].ID),
				zap.String("period", period),
			)
		}
		if processed == 0 {
			return jobErr
		}
	}
}

// forEach fans a batch out over the configured worker count.
func (s *Scheduler) forEach(ctx context.Context, items []domain.Integration, fn func(context.Context, domain.Integration) error, jobErr *error) {
	workers := s.cfg.WorkerCount
	if workers > len(items) {
		workers = len(items)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	work := make(chan domain.Integration)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					*jobErr = errors.Join(*jobErr, err)
					mu.Unlock()
				}
			}
		}()
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		work <- item
	}
	close(work)
	wg.Wait()
}
