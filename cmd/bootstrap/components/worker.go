package components

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/pkg/config"
	"event-ticketing/internal/usecase/shared"
	"event-ticketing/internal/worker"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		NewSweeper,
	),
	fx.Invoke(registerSweeper),
)

func NewSweeper(uow shared.UnitOfWork, source worker.ExpiredOrderSource, clk clock.Clock, cfg config.Config, logger *slog.Logger) *worker.Sweeper {
	return worker.NewSweeper(uow, source, clk, cfg.Ticketing, logger)
}

func registerSweeper(lc fx.Lifecycle, sweeper *worker.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sweeper.Start()
			return nil
		},
		OnStop: func(_ context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}
