package coupontemplate

import (
	"github.com/tably/tably/internal/coupontemplate/repository"
	"github.com/tably/tably/internal/coupontemplate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coupontemplate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
