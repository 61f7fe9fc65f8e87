package datasync

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tripmesh/integrations/internal/integration/domain"
	"github.com/tripmesh/integrations/internal/provider"
	"github.com/tripmesh/integrations/internal/transform"
)

// Module provides the sync orchestrator.
var Module = fx.Module("datasync",
	fx.Provide(New),
)

// Strategy performs the transfer for one data type and reports how many
// records moved.
type Strategy interface {
	Sync(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (int, error)
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Client      provider.Client
	Transformer *transform.Transformer
}

// Orchestrator dispatches a sync to a per-data-type strategy and converts
// every failure into a structured result so one data type cannot abort
// its siblings in the same batch.
type Orchestrator struct {
	log        *zap.Logger
	strategies map[string]Strategy
	generic    Strategy
}

func New(p Params) *Orchestrator {
	log := p.Log.Named("datasync")
	base := baseStrategy{client: p.Client, transformer: p.Transformer, log: log}
	return &Orchestrator{
		log: log,
		strategies: map[string]Strategy{
			"users":     &userStrategy{base},
			"blogs":     &blogStrategy{base},
			"bookings":  &bookingStrategy{base},
			"reviews":   &reviewStrategy{base},
			"analytics": &analyticsStrategy{base},
		},
		generic: &genericStrategy{base},
	}
}

// SyncOne runs one data-type sync. Panics and errors both surface as a
// failed result, never as a propagated error.
func (o *Orchestrator) SyncOne(ctx context.Context, integration *domain.Integration, dataType string, direction domain.Direction) (result domain.SyncResult) {
	result = domain.SyncResult{DataType: dataType}

	defer func() {
		if r := recover(); r != nil {
			o.log.Error("sync strategy panicked",
				zap.Int64("integration_id", integration.ID),
				zap.String("data_type", dataType),
				zap.Any("panic", r),
			)
			result.Success = false
			result.RecordsProcessed = 0
			result.Errors = []string{fmt.Sprintf("panic: %v", r)}
		}
	}()

	strategy, ok := o.strategies[dataType]
	if !ok {
		strategy = o.generic
	}

	processed, err := strategy.Sync(ctx, integration, dataType, direction)
	if err != nil {
		o.log.Warn("sync failed",
			zap.Int64("integration_id", integration.ID),
			zap.String("data_type", dataType),
			zap.Error(err),
		)
		return domain.SyncResult{
			DataType: dataType,
			Success:  false,
			Errors:   []string{err.Error()},
		}
	}

	return domain.SyncResult{
		DataType:         dataType,
		Success:          true,
		RecordsProcessed: processed,
	}
}
