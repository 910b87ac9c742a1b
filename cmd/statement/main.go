package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/statement/internal/audit"
	"github.com/smallbiznis/statement/internal/auth"
	"github.com/smallbiznis/statement/internal/authorization"
	"github.com/smallbiznis/statement/internal/cache"
	"github.com/smallbiznis/statement/internal/clock"
	"github.com/smallbiznis/statement/internal/config"
	"github.com/smallbiznis/statement/internal/customer"
	"github.com/smallbiznis/statement/internal/invoice"
	"github.com/smallbiznis/statement/internal/migration"
	"github.com/smallbiznis/statement/internal/observability"
	"github.com/smallbiznis/statement/internal/pricingrule"
	"github.com/smallbiznis/statement/internal/product"
	"github.com/smallbiznis/statement/internal/providers"
	"github.com/smallbiznis/statement/internal/ratelimit"
	"github.com/smallbiznis/statement/internal/report"
	"github.com/smallbiznis/statement/internal/server"
	"github.com/smallbiznis/statement/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		ratelimit.Module,

		// Schema must be current before any module touches the tables.
		migration.Module,

		// Domains
		customer.Module,
		product.Module,
		pricingrule.Module,
		invoice.Module,
		report.Module,
		auth.Module,
		authorization.Module,
		audit.Module,
		providers.Module,

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
