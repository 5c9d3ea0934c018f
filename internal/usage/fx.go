package usage

import (
	"github.com/revitfy/revitfy/internal/usage/repository"
	"github.com/revitfy/revitfy/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(
		repository.ProvideLedger,
		service.NewService,
	),
)
