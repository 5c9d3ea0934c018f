package reaction

import (
	"github.com/revitfy/revitfy/internal/reaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reaction.service",
	fx.Provide(service.NewService),
)
