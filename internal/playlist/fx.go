package playlist

import (
	"github.com/revitfy/revitfy/internal/playlist/service"
	"go.uber.org/fx"
)

var Module = fx.Module("playlist.service",
	fx.Provide(service.NewService),
)
