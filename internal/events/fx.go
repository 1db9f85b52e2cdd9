package events

import (
	"github.com/smallbiznis/printflow/internal/events/domain"
	"github.com/smallbiznis/printflow/internal/events/repository"
	"github.com/smallbiznis/printflow/internal/events/service"
	"go.uber.org/fx"
)

var Module = fx.Module("events.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) domain.Publisher { return svc }),
)
