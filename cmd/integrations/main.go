package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/tripmesh/integrations/internal/clock"
	"github.com/tripmesh/integrations/internal/config"
	"github.com/tripmesh/integrations/internal/datasync"
	"github.com/tripmesh/integrations/internal/integration"
	"github.com/tripmesh/integrations/internal/migration"
	"github.com/tripmesh/integrations/internal/probe"
	"github.com/tripmesh/integrations/internal/provider"
	"github.com/tripmesh/integrations/internal/ratelimit"
	"github.com/tripmesh/integrations/internal/scheduler"
	"github.com/tripmesh/integrations/internal/server"
	"github.com/tripmesh/integrations/internal/transform"
	"github.com/tripmesh/integrations/internal/webhook"
	"github.com/tripmesh/integrations/pkg/db"
	"github.com/tripmesh/integrations/pkg/log"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		provider.Module,
		probe.Module,
		transform.Module,
		webhook.Module,
		ratelimit.Module,
		datasync.Module,
		integration.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
