package userdirectory

import (
	"github.com/tably/tably/internal/userdirectory/repository"
	"github.com/tably/tably/internal/userdirectory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("userdirectory.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
