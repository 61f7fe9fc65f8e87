package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tripmesh/integrations/internal/config"
	"github.com/tripmesh/integrations/internal/integration/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType != "postgres" {
			// sqlite and mysql deployments lean on gorm's schema sync.
			return conn.AutoMigrate(&domain.Integration{})
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
