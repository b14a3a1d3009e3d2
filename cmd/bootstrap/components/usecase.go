package components

import (
	"go.uber.org/fx"

	"event-ticketing/internal/pkg/clock"
	"event-ticketing/internal/usecase/commands"
	"event-ticketing/internal/usecase/queries"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewOrderCommands,
		commands.NewCheckoutCommands,
		commands.NewWebhookCommands,
		commands.NewRefundCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewOrderQueries,
		queries.NewTicketTypeQueries,
	),
)
