package identity

import (
	"github.com/revitfy/revitfy/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(service.NewService),
)
