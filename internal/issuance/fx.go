package issuance

import (
	"github.com/tably/tably/internal/issuance/repository"
	"github.com/tably/tably/internal/issuance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("issuance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
