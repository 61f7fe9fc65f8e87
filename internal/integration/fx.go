package integration

import (
	"go.uber.org/fx"

	"github.com/tripmesh/integrations/internal/integration/repository"
	"github.com/tripmesh/integrations/internal/integration/service"
)

var Module = fx.Module("integration",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
