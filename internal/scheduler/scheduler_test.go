package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tripmesh/integrations/internal/clock"
	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/integration/repository"
)

// stubService records which integrations the scheduler touched.
type stubService struct {
	mu          sync.Mutex
	tested      []int64
	synced      []int64
	testErr     error
	syncErr     error
	syncSummary *domain.SyncSummary
}

func (s *stubService) TestConnection(ctx context.Context, id int64) (*domain.TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tested = append(s.tested, id)
	if s.testErr != nil {
		return nil, s.testErr
	}
	return &domain.TestResult{Success: true}, nil
}

func (s *stubService) SyncData(ctx context.Context, req domain.SyncRequest) (*domain.SyncSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, req.ID)
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	if s.syncSummary != nil {
		return s.syncSummary, nil
	}
	return &domain.SyncSummary{Success: true}, nil
}

func (s *stubService) Create(context.Context, domain.CreateRequest) (*domain.Integration, error) {
	return nil, nil
}
func (s *stubService) Configure(context.Context, int64, domain.ConfigPatch) (*domain.ConfigureResponse, error) {
	return nil, nil
}
func (s *stubService) SendData(context.Context, int64, map[string]any, string) (map[string]any, error) {
	return nil, nil
}
func (s *stubService) ReceiveData(context.Context, int64, string, map[string]string) (map[string]any, error) {
	return nil, nil
}
func (s *stubService) HandleWebhook(context.Context, int64, string, map[string]any, map[string]string) (*domain.WebhookResult, error) {
	return nil, nil
}
func (s *stubService) Analytics(context.Context, int64, int64, string) (*domain.AnalyticsResponse, error) {
	return nil, nil
}
func (s *stubService) Toggle(context.Context, int64, int64, bool) (*domain.Integration, error) {
	return nil, nil
}
func (s *stubService) Delete(context.Context, int64, int64) error { return nil }
func (s *stubService) Get(context.Context, int64, int64) (*domain.Integration, error) {
	return nil, nil
}
func (s *stubService) List(context.Context, int64) ([]domain.Integration, error) { return nil, nil }

func newTestScheduler(t *testing.T, svc domain.Service, fakeClock clock.Clock) (*Scheduler, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Integration{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sched, err := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Svc:   svc,
		Clock: fakeClock,
		Config: Config{
			WorkerCount: 2,
			BatchSize:   10,
		},
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return sched, db
}

func seedIntegration(t *testing.T, db *gorm.DB, integration *domain.Integration) {
	t.Helper()
	if integration.CreatedAt.IsZero() {
		integration.CreatedAt = time.Now().UTC()
		integration.UpdatedAt = integration.CreatedAt
	}
	if err := db.Create(integration).Error; err != nil {
		t.Fatalf("seed integration %d: %v", integration.ID, err)
	}
}

func TestUsageResetJob_ResetsAndClearsRateLimit(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))
	svc := &stubService{}
	sched, db := newTestScheduler(t, svc, fakeClock)

	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "a", Slug: "a", Type: domain.TypeCRM,
		Status: domain.StatusRateLimited, IsEnabled: true,
		MonthlyLimit: 100, CurrentMonthUsage: 95, LastUsageReset: "2026-02",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 2, OwnerID: 10, Name: "b", Slug: "b", Type: domain.TypeCRM,
		Status: domain.StatusActive, IsEnabled: true,
		MonthlyLimit: 100, CurrentMonthUsage: 40, LastUsageReset: "2026-02",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 3, OwnerID: 10, Name: "c", Slug: "c", Type: domain.TypeCRM,
		Status: domain.StatusError, IsEnabled: true,
		MonthlyLimit: 100, CurrentMonthUsage: 10, LastUsageReset: "2026-03",
	})

	assert.NoError(t, sched.UsageResetJob(context.Background()))

	var first, second, third domain.Integration
	assert.NoError(t, db.First(&first, "id = 1").Error)
	assert.NoError(t, db.First(&second, "id = 2").Error)
	assert.NoError(t, db.First(&third, "id = 3").Error)

	assert.Equal(t, int64(0), first.CurrentMonthUsage)
	assert.Equal(t, "2026-03", first.LastUsageReset)
	assert.Equal(t, domain.StatusActive, first.Status)

	assert.Equal(t, int64(0), second.CurrentMonthUsage)
	assert.Equal(t, domain.StatusActive, second.Status)

	// Already reset for this period, untouched.
	assert.Equal(t, int64(10), third.CurrentMonthUsage)
	assert.Equal(t, domain.StatusError, third.Status)
}

func TestUsageResetJob_Idempotent(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))
	svc := &stubService{}
	sched, db := newTestScheduler(t, svc, fakeClock)

	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "a", Slug: "a", Type: domain.TypeCRM,
		Status: domain.StatusActive, IsEnabled: true,
		MonthlyLimit: 100, CurrentMonthUsage: 95, LastUsageReset: "2026-02",
	})

	assert.NoError(t, sched.UsageResetJob(context.Background()))

	// Usage accrues again mid-month; a second run must not wipe it.
	assert.NoError(t, db.Exec(`UPDATE integrations SET current_month_usage = 7 WHERE id = 1`).Error)
	assert.NoError(t, sched.UsageResetJob(context.Background()))

	var item domain.Integration
	assert.NoError(t, db.First(&item, "id = 1").Error)
	assert.Equal(t, int64(7), item.CurrentMonthUsage)

	// A month boundary triggers the next reset.
	fakeClock.Set(time.Date(2026, 4, 1, 0, 0, 30, 0, time.UTC))
	assert.NoError(t, sched.UsageResetJob(context.Background()))
	assert.NoError(t, db.First(&item, "id = 1").Error)
	assert.Equal(t, int64(0), item.CurrentMonthUsage)
	assert.Equal(t, "2026-04", item.LastUsageReset)
}

func TestUsageResetJob_LeavesOtherColumnsAlone(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 1, 0, 5, 0, 0, time.UTC))
	svc := &stubService{}
	sched, db := newTestScheduler(t, svc, fakeClock)

	nextSync := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "a", Slug: "a", Type: domain.TypeCRM,
		Status: domain.StatusError, IsEnabled: true,
		MonthlyLimit: 100, CurrentMonthUsage: 95, LastUsageReset: "2026-02",
		TotalRequests: 42, SuccessfulRequests: 40, FailedRequests: 2,
		NextSync: &nextSync,
		RecentLogs: []domain.LogEntry{
			{Timestamp: time.Date(2026, 2, 28, 23, 0, 0, 0, time.UTC), Level: domain.LogInfo, Message: "send ok"},
		},
	})

	assert.NoError(t, sched.UsageResetJob(context.Background()))

	var item domain.Integration
	assert.NoError(t, db.First(&item, "id = 1").Error)

	assert.Equal(t, int64(0), item.CurrentMonthUsage)
	assert.Equal(t, "2026-03", item.LastUsageReset)

	// The reset only touches quota columns: counters, logs, schedule and a
	// non-quota status all survive.
	assert.Equal(t, domain.StatusError, item.Status)
	assert.Equal(t, int64(42), item.TotalRequests)
	assert.Equal(t, int64(40), item.SuccessfulRequests)
	assert.Equal(t, int64(2), item.FailedRequests)
	assert.NotNil(t, item.NextSync)
	assert.True(t, item.NextSync.Equal(nextSync))
	assert.Len(t, item.RecentLogs, 1)
	assert.Equal(t, "send ok", item.RecentLogs[0].Message)
}

func TestSyncSweepJob_RunsDueIntegrations(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(now)
	svc := &stubService{}
	sched, db := newTestScheduler(t, svc, fakeClock)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "due", Slug: "due", Type: domain.TypeBooking,
		Status: domain.StatusActive, IsEnabled: true, AutoSync: true,
		NextSync: &past, LastUsageReset: "2026-03",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 2, OwnerID: 10, Name: "later", Slug: "later", Type: domain.TypeBooking,
		Status: domain.StatusActive, IsEnabled: true, AutoSync: true,
		NextSync: &future, LastUsageReset: "2026-03",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 3, OwnerID: 10, Name: "manual", Slug: "manual", Type: domain.TypeBooking,
		Status: domain.StatusActive, IsEnabled: true, AutoSync: false,
		NextSync: &past, LastUsageReset: "2026-03",
	})

	assert.NoError(t, sched.SyncSweepJob(context.Background()))
	assert.Equal(t, []int64{1}, svc.synced)
}

func TestSyncSweepJob_SkipsUnhealthyWithoutError(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fakeClock := clock.NewFakeClock(now)
	svc := &stubService{syncErr: domain.ErrNotHealthy}
	sched, db := newTestScheduler(t, svc, fakeClock)

	past := now.Add(-time.Minute)
	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "due", Slug: "due", Type: domain.TypeBooking,
		Status: domain.StatusActive, IsEnabled: true, AutoSync: true,
		NextSync: &past, LastUsageReset: "2026-03",
	})

	assert.NoError(t, sched.SyncSweepJob(context.Background()))
	assert.Equal(t, []int64{1}, svc.synced)
}

func TestHealthCheckJob_ProbesEnabledIntegrations(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := &stubService{}
	sched, db := newTestScheduler(t, svc, fakeClock)

	seedIntegration(t, db, &domain.Integration{
		ID: 1, OwnerID: 10, Name: "a", Slug: "a", Type: domain.TypeCRM,
		Status: domain.StatusActive, IsEnabled: true, LastUsageReset: "2026-03",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 2, OwnerID: 10, Name: "b", Slug: "b", Type: domain.TypeCRM,
		Status: domain.StatusError, IsEnabled: true, LastUsageReset: "2026-03",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 3, OwnerID: 10, Name: "c", Slug: "c", Type: domain.TypeCRM,
		Status: domain.StatusActive, IsEnabled: false, LastUsageReset: "2026-03",
	})
	seedIntegration(t, db, &domain.Integration{
		ID: 4, OwnerID: 10, Name: "d", Slug: "d", Type: domain.TypeCRM,
		Status: domain.StatusPendingSetup, IsEnabled: true, LastUsageReset: "2026-03",
	})

	assert.NoError(t, sched.HealthCheckJob(context.Background()))
	assert.ElementsMatch(t, []int64{1, 2}, svc.tested)
}

func TestRunOnce_AggregatesJobErrors(t *testing.T) {
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := &stubService{}
	sched, _ := newTestScheduler(t, svc, fakeClock)

	// Empty database: all jobs are no-ops.
	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.HealthCheckInterval)
	assert.Equal(t, time.Minute, cfg.SyncSweepInterval)
	assert.Equal(t, time.Minute, cfg.UsageResetInterval)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 50, cfg.BatchSize)

	cfg = Config{WorkerCount: 2, BatchSize: 5}.withDefaults()
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 5, cfg.BatchSize)
}
