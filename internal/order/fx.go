package order

import (
	"github.com/smallbiznis/printflow/internal/order/repository"
	"github.com/smallbiznis/printflow/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(
		fx.Annotate(
			service.NewBreachFlagger,
			fx.ResultTags(`group:"sla_breach_listeners"`),
		),
	),
)
