package vendor

import (
	"github.com/smallbiznis/vendora/internal/vendors/repository"
	"github.com/smallbiznis/vendora/internal/vendors/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vendor.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
