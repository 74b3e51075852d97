package dashboard

import (
	"github.com/blicktrack/platform/internal/dashboard/repository"
	"github.com/blicktrack/platform/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
