package tenant

import (
	"github.com/blicktrack/platform/internal/tenant/repository"
	"github.com/blicktrack/platform/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
