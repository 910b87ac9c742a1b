package pricingrule

import (
	"github.com/smallbiznis/statement/internal/pricingrule/repository"
	"github.com/smallbiznis/statement/internal/pricingrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricingrule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
