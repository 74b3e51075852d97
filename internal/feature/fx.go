package feature

import (
	"github.com/blicktrack/platform/internal/feature/repository"
	"github.com/blicktrack/platform/internal/feature/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feature.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
