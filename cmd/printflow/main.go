package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/authorization"
	"github.com/smallbiznis/printflow/internal/booking"
	"github.com/smallbiznis/printflow/internal/catalog"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	"github.com/smallbiznis/printflow/internal/events"
	"github.com/smallbiznis/printflow/internal/inventory"
	"github.com/smallbiznis/printflow/internal/invoice"
	"github.com/smallbiznis/printflow/internal/lifecyclemetrics"
	"github.com/smallbiznis/printflow/internal/migration"
	"github.com/smallbiznis/printflow/internal/notification"
	"github.com/smallbiznis/printflow/internal/observability"
	"github.com/smallbiznis/printflow/internal/order"
	"github.com/smallbiznis/printflow/internal/payment"
	"github.com/smallbiznis/printflow/internal/proofing"
	"github.com/smallbiznis/printflow/internal/providers"
	"github.com/smallbiznis/printflow/internal/quote"
	"github.com/smallbiznis/printflow/internal/scheduler"
	"github.com/smallbiznis/printflow/internal/server"
	"github.com/smallbiznis/printflow/internal/sla"
	"github.com/smallbiznis/printflow/pkg/db"
	"go.uber.org/fx"
)

// printflow runs the API and the scheduler in one process.
func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Lifecycle domains
		events.Module,
		catalog.Module,
		quote.Module,
		order.Module,
		proofing.Module,
		booking.Module,
		payment.Module,
		invoice.Module,
		inventory.Module,
		sla.Module,

		providers.Module,
		notification.Module,
		authorization.Module,
		lifecyclemetrics.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
