package ledger

import (
	"github.com/smallbiznis/vendora/internal/ledger/repository"
	"github.com/smallbiznis/vendora/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewFeeResolver),
	fx.Provide(service.New),
)
