package storefront

import (
	"github.com/smallbiznis/vendora/internal/storefront/domain"
	"github.com/smallbiznis/vendora/internal/storefront/repository"
	"github.com/smallbiznis/vendora/internal/storefront/service"
	vendordomain "github.com/smallbiznis/vendora/internal/vendors/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("storefront.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(func(s domain.Service) vendordomain.DomainProvisioner { return s }),
)
