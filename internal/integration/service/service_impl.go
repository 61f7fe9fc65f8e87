package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tripmesh/integrations/internal/clock"
	"github.com/tripmesh/integrations/internal/datasync"
	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/probe"
	"github.com/tripmesh/integrations/internal/provider"
	"github.com/tripmesh/integrations/internal/ratelimit"
	"github.com/tripmesh/integrations/internal/transform"
	"github.com/tripmesh/integrations/internal/webhook"
	"github.com/tripmesh/integrations/pkg/db"
)

const defaultMonthlyLimit = 10_000

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Repo         domain.Repository
	GenID        *snowflake.Node
	Clock        clock.Clock
	Prober       probe.Prober
	Governor     *ratelimit.Governor
	Orchestrator *datasync.Orchestrator
	Transformer  *transform.Transformer
	Processor    *webhook.Processor
	Client       provider.Client
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         domain.Repository
	genID        *snowflake.Node
	clock        clock.Clock
	prober       probe.Prober
	governor     *ratelimit.Governor
	orchestrator *datasync.Orchestrator
	transformer  *transform.Transformer
	processor    *webhook.Processor
	client       provider.Client
	locks        *keyedMutex
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("integration.service"),
		repo:         p.Repo,
		genID:        p.GenID,
		clock:        p.Clock,
		prober:       p.Prober,
		governor:     p.Governor,
		orchestrator: p.Orchestrator,
		transformer:  p.Transformer,
		processor:    p.Processor,
		client:       p.Client,
		locks:        newKeyedMutex(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Integration, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}
	if !domain.ValidType(req.Type) {
		return nil, domain.ErrInvalidType
	}

	nameSlug := slug.Make(name)
	existing, err := s.repo.FindBySlug(ctx, s.db, nameSlug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrNameTaken
	}

	now := s.clock.Now()
	integration := &domain.Integration{
		ID:                  s.genID.Generate().Int64(),
		OwnerID:             req.OwnerID,
		Name:                name,
		Slug:                nameSlug,
		Type:                req.Type,
		Status:              domain.StatusPendingSetup,
		IsEnabled:           false,
		SyncIntervalSeconds: 3600,
		SyncDirection:       domain.DirectionBidirectional,
		MonthlyLimit:        defaultMonthlyLimit,
		ErrorHandling: domain.ErrorHandling{
			RetryStrategy: domain.RetryExponentialBackoff,
			MaxRetries:    3,
			TimeoutMs:     domain.DefaultTimeoutMs,
		},
		LastUsageReset: now.Format("2006-01"),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Config != nil {
		applyPatch(integration, *req.Config)
	}

	if err := s.repo.Create(ctx, s.db, integration); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	// Best-effort initial probe: a failed first contact must not fail
	// creation, it only seeds the health fields.
	s.runProbe(ctx, integration)
	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		s.log.Warn("failed to persist initial health check",
			zap.Int64("integration_id", integration.ID),
			zap.Error(err),
		)
	}

	s.log.Info("integration created",
		zap.Int64("integration_id", integration.ID),
		zap.String("type", string(integration.Type)),
	)
	return integration.Redacted(), nil
}

func (s *Service) Configure(ctx context.Context, id int64, patch domain.ConfigPatch) (*domain.ConfigureResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	applyPatch(integration, patch)
	integration.Status = domain.StatusPendingSetup

	result := s.runProbe(ctx, integration)
	if result.Success {
		integration.Status = domain.StatusActive
		integration.IsEnabled = true
	}

	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}

	return &domain.ConfigureResponse{
		Integration: integration.Redacted(),
		TestResult:  result,
	}, nil
}

func (s *Service) TestConnection(ctx context.Context, id int64) (*domain.TestResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	result := s.runProbe(ctx, integration)
	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}
	return result, nil
}

// runProbe executes the health probe and folds the outcome into the
// integration's health fields and activity log. Routine probe failures
// deliberately leave status alone: only Configure's own test result moves
// the status, so a flapping provider does not flap the lifecycle.
func (s *Service) runProbe(ctx context.Context, integration *domain.Integration) *domain.TestResult {
	started := time.Now()
	result := s.prober.Probe(ctx, integration)
	elapsed := time.Since(started).Milliseconds()
	if result.ResponseTimeMs > 0 {
		elapsed = result.ResponseTimeMs
	}

	at := s.clock.Now()
	integration.LastHealthCheck = &at
	integration.Health.ResponseTimeMs = elapsed
	integration.Health.IsHealthy = result.Success
	if result.Success {
		integration.Health.LastError = ""
	} else {
		integration.Health.LastError = result.Message
	}
	integration.Health.UptimePct = blendUptime(integration.Health.UptimePct, result.Success)

	level := domain.LogInfo
	if !result.Success {
		level = domain.LogError
	}
	integration.AppendLog(domain.LogEntry{
		Timestamp:      at,
		Level:          level,
		Message:        result.Message,
		RequestID:      uuid.NewString(),
		ResponseTimeMs: elapsed,
	})

	return &domain.TestResult{
		Success:        result.Success,
		Message:        result.Message,
		Data:           result.Data,
		ResponseTimeMs: elapsed,
	}
}

// blendUptime keeps a decayed availability figure without storing a
// probe history: the first probe sets the baseline, later probes move it.
func blendUptime(current float64, success bool) float64 {
	sample := 0.0
	if success {
		sample = 100.0
	}
	if current == 0 && success {
		return 100.0
	}
	return current*0.9 + sample*0.1
}

func (s *Service) Toggle(ctx context.Context, id int64, ownerID int64, enabled bool) (*domain.Integration, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	integration, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	integration.IsEnabled = enabled
	if !enabled {
		integration.Status = domain.StatusInactive
	} else if integration.Status == domain.StatusInactive {
		integration.Status = domain.StatusActive
	}

	if err := s.repo.Save(ctx, s.db, integration); err != nil {
		return nil, err
	}
	return integration.Redacted(), nil
}

func (s *Service) Delete(ctx context.Context, id int64, ownerID int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.loadOwned(ctx, id, ownerID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.log.Info("integration deleted", zap.Int64("integration_id", id))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64, ownerID int64) (*domain.Integration, error) {
	integration, err := s.loadOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	return integration.Redacted(), nil
}

func (s *Service) List(ctx context.Context, ownerID int64) ([]domain.Integration, error) {
	items, err := s.repo.List(ctx, s.db, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Integration, 0, len(items))
	for idx := range items {
		out = append(out, *items[idx].Redacted())
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Integration, error) {
	integration, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if integration == nil {
		return nil, domain.ErrNotFound
	}
	return integration, nil
}

func (s *Service) loadOwned(ctx context.Context, id int64, ownerID int64) (*domain.Integration, error) {
	integration, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if integration.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return integration, nil
}

func applyPatch(integration *domain.Integration, patch domain.ConfigPatch) {
	if patch.Credentials != nil {
		integration.Credentials = *patch.Credentials
	}
	if patch.BaseURL != nil {
		integration.BaseURL = *patch.BaseURL
	}
	if patch.Endpoints != nil {
		integration.Endpoints = *patch.Endpoints
	}
	if patch.RateLimit != nil {
		integration.RateLimit = *patch.RateLimit
	}
	if patch.CustomSettings != nil {
		integration.CustomSettings = patch.CustomSettings
	}
	if patch.AutoSync != nil {
		integration.AutoSync = *patch.AutoSync
	}
	if patch.SyncIntervalSeconds != nil {
		integration.SyncIntervalSeconds = *patch.SyncIntervalSeconds
	}
	if patch.SyncDirection != nil {
		integration.SyncDirection = *patch.SyncDirection
	}
	if patch.DataTypes != nil {
		integration.DataTypes = patch.DataTypes
	}
	if patch.MonthlyLimit != nil {
		integration.MonthlyLimit = *patch.MonthlyLimit
	}
	if patch.Webhooks != nil {
		integration.Webhooks = patch.Webhooks
	}
	if patch.FieldMappings != nil {
		integration.FieldMappings = patch.FieldMappings
	}
	if patch.RequestTransform != nil {
		integration.RequestTransform = *patch.RequestTransform
	}
	if patch.ResponseTransform != nil {
		integration.ResponseTransform = *patch.ResponseTransform
	}
	if patch.ErrorHandling != nil {
		integration.ErrorHandling = *patch.ErrorHandling
	}
}
