package auth

import (
	"context"

	"github.com/smallbiznis/statement/internal/auth/domain"
	"github.com/smallbiznis/statement/internal/auth/repository"
	"github.com/smallbiznis/statement/internal/auth/service"
	"github.com/smallbiznis/statement/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.New),
	fx.Provide(service.New),
	fx.Invoke(registerAdminBootstrap),
)

func registerAdminBootstrap(lc fx.Lifecycle, svc domain.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return svc.EnsureAdmin(ctx)
		},
	})
}
