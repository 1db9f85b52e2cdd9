package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/printflow/internal/catalog"
	"github.com/smallbiznis/printflow/internal/clock"
	"github.com/smallbiznis/printflow/internal/config"
	"github.com/smallbiznis/printflow/internal/events"
	"github.com/smallbiznis/printflow/internal/inventory"
	"github.com/smallbiznis/printflow/internal/invoice"
	"github.com/smallbiznis/printflow/internal/lifecyclemetrics"
	"github.com/smallbiznis/printflow/internal/notification"
	"github.com/smallbiznis/printflow/internal/observability"
	"github.com/smallbiznis/printflow/internal/order"
	"github.com/smallbiznis/printflow/internal/payment"
	"github.com/smallbiznis/printflow/internal/providers"
	"github.com/smallbiznis/printflow/internal/quote"
	"github.com/smallbiznis/printflow/internal/scheduler"
	"github.com/smallbiznis/printflow/internal/sla"
	"github.com/smallbiznis/printflow/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the jobs and their transitive deps.
		events.Module,
		catalog.Module,
		quote.Module,
		order.Module,
		payment.Module,
		invoice.Module,
		inventory.Module,
		sla.Module,

		providers.Module,
		notification.Module,
		lifecyclemetrics.Module,

		// No server module.
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
