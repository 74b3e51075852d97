package plan

import (
	"github.com/blicktrack/platform/internal/plan/repository"
	"github.com/blicktrack/platform/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
