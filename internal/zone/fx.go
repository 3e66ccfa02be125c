package zone

import (
	"github.com/rateshoplabs/rateshop/internal/zone/repository"
	"github.com/rateshoplabs/rateshop/internal/zone/service"
	"go.uber.org/fx"
)

var Module = fx.Module("zone.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
