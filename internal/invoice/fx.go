package invoice

import (
	"github.com/smallbiznis/printflow/internal/invoice/repository"
	"github.com/smallbiznis/printflow/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(
		fx.Annotate(
			service.NewBalanceSync,
			fx.ResultTags(`group:"order_balance_listeners"`),
		),
	),
)
