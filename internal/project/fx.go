package project

import (
	"github.com/blicktrack/platform/internal/project/repository"
	"github.com/blicktrack/platform/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
