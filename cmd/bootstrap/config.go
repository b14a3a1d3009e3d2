package bootstrap

import (
	"go.uber.org/fx"

	"event-ticketing/internal/pkg/config"
)

// ConfigModule loads the environment-driven configuration once and shares it
// with every other module.
var ConfigModule = fx.Module("config",
	fx.Provide(
		config.LoadConfig,
	),
)
