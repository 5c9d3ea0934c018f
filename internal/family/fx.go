package family

import (
	"github.com/revitfy/revitfy/internal/family/service"
	"go.uber.org/fx"
)

var Module = fx.Module("family.service",
	fx.Provide(service.NewService),
)
