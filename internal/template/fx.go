package template

import (
	"github.com/rateshoplabs/rateshop/internal/template/repository"
	"github.com/rateshoplabs/rateshop/internal/template/service"
	"go.uber.org/fx"
)

var Module = fx.Module("template.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
