package bootstrap

import (
	"go.uber.org/fx"

	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/pkg/jwt"
)

var JWTModule = fx.Module("jwt",
	fx.Provide(
		NewJWTService,
	),
)

func NewJWTService(cfg config.Config) *jwt.Service {
	return jwt.NewService(cfg.JWT.Secret)
}
