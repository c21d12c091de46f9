package couponprogram

import (
	"github.com/tably/tably/internal/couponprogram/repository"
	"github.com/tably/tably/internal/couponprogram/service"
	"go.uber.org/fx"
)

var Module = fx.Module("couponprogram.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
