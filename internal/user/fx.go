package user

import (
	"github.com/blicktrack/platform/internal/user/repository"
	"github.com/blicktrack/platform/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
