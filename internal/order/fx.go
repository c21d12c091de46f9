package order

import (
	"github.com/tably/tably/internal/order/repository"
	"github.com/tably/tably/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
