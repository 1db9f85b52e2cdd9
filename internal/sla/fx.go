package sla

import (
	"github.com/smallbiznis/printflow/internal/sla/repository"
	"github.com/smallbiznis/printflow/internal/sla/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sla.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
