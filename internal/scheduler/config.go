package scheduler

import (
	"time"

	"github.com/tripmesh/integrations/internal/config"
)

// Config controls scheduler intervals, batch sizes and worker fan-out.
type Config struct {
	HealthCheckInterval time.Duration
	SyncSweepInterval   time.Duration
	UsageResetInterval  time.Duration
	WorkerCount         int
	BatchSize           int
}

func DefaultConfig() Config {
	return Config{
		HealthCheckInterval: 5 * time.Minute,
		SyncSweepInterval:   time.Minute,
		UsageResetInterval:  time.Minute,
		WorkerCount:         8,
		BatchSize:           50,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		HealthCheckInterval: cfg.Scheduler.HealthCheckInterval,
		SyncSweepInterval:   cfg.Scheduler.SyncSweepInterval,
		UsageResetInterval:  cfg.Scheduler.UsageResetInterval,
		WorkerCount:         cfg.Scheduler.WorkerCount,
		BatchSize:           cfg.Scheduler.BatchSize,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = defaults.HealthCheckInterval
	}
	if c.SyncSweepInterval <= 0 {
		c.SyncSweepInterval = defaults.SyncSweepInterval
	}
	if c.UsageResetInterval <= 0 {
		c.UsageResetInterval = defaults.UsageResetInterval
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = defaults.WorkerCount
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
