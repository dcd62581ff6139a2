package identity

import (
	"github.com/smallbiznis/vendora/internal/identity/repository"
	"github.com/smallbiznis/vendora/internal/identity/service"
	"github.com/smallbiznis/vendora/internal/identity/session"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
