package cart

import (
	"github.com/smallbiznis/vendora/internal/cart/repository"
	"github.com/smallbiznis/vendora/internal/cart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cart.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
