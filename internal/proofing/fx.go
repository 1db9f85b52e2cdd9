package proofing

import (
	"github.com/smallbiznis/printflow/internal/proofing/repository"
	"github.com/smallbiznis/printflow/internal/proofing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("proofing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
